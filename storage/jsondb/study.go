package jsondb

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/study"
)

// userDoc is a user's whole study document; every save rewrites it in full.
type userDoc struct {
	Tasks         []study.StudyTask    `json:"tasks"`
	Plan          *study.StudyPlan     `json:"plan,omitempty"`
	Progress      []study.DayProgress  `json:"progress"`
	Streak        study.Streak         `json:"streak"`
	Notifications []study.Notification `json:"notifications"`
	SavedAt       time.Time            `json:"saved_at"`
}

type studyRepository struct {
	db *DB
}

var _ study.Repository = (*studyRepository)(nil) // interface compliance check

func NewStudyRepository(db *DB) study.Repository {
	return &studyRepository{db: db}
}

func (repo *studyRepository) load(username string) (userDoc, error) {
	var doc userDoc
	if _, err := repo.db.readFile(repo.db.path(username+".json"), &doc); err != nil {
		return userDoc{}, err
	}
	return doc, nil
}

func (repo *studyRepository) save(username string, doc userDoc) error {
	doc.SavedAt = time.Now().UTC()
	return repo.db.writeFile(repo.db.path(username+".json"), doc)
}

// update applies fn to the user's document under the write lock and saves it.
func (repo *studyRepository) update(username string, fn func(doc *userDoc)) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	doc, err := repo.load(username)
	if err != nil {
		return err
	}
	fn(&doc)
	return repo.save(username, doc)
}

func (repo *studyRepository) LoadTasks(ctx context.Context, username string) ([]study.StudyTask, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	doc, err := repo.load(username)
	if err != nil {
		return nil, err
	}
	return doc.Tasks, nil
}

func (repo *studyRepository) SaveTasks(ctx context.Context, username string, tasks []study.StudyTask) error {
	return repo.update(username, func(doc *userDoc) { doc.Tasks = tasks })
}

func (repo *studyRepository) LoadPlan(ctx context.Context, username string) (*study.StudyPlan, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	doc, err := repo.load(username)
	if err != nil {
		return nil, err
	}
	return doc.Plan, nil
}

func (repo *studyRepository) SavePlan(ctx context.Context, username string, plan study.StudyPlan) error {
	return repo.update(username, func(doc *userDoc) { doc.Plan = &plan })
}

func (repo *studyRepository) LoadProgress(ctx context.Context, username string) ([]study.DayProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	doc, err := repo.load(username)
	if err != nil {
		return nil, err
	}
	return doc.Progress, nil
}

func (repo *studyRepository) SaveProgress(ctx context.Context, username string, progress []study.DayProgress) error {
	return repo.update(username, func(doc *userDoc) { doc.Progress = progress })
}

func (repo *studyRepository) LoadStreak(ctx context.Context, username string) (study.Streak, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	doc, err := repo.load(username)
	if err != nil {
		return study.Streak{}, err
	}
	return doc.Streak, nil
}

func (repo *studyRepository) SaveStreak(ctx context.Context, username string, streak study.Streak) error {
	return repo.update(username, func(doc *userDoc) { doc.Streak = streak })
}

func (repo *studyRepository) LoadNotifications(ctx context.Context, username string) ([]study.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	doc, err := repo.load(username)
	if err != nil {
		return nil, err
	}
	return doc.Notifications, nil
}

func (repo *studyRepository) SaveNotifications(ctx context.Context, username string, notes []study.Notification) error {
	return repo.update(username, func(doc *userDoc) { doc.Notifications = notes })
}

// DeleteUserData removes the user's document; a missing file is a no-op.
func (repo *studyRepository) DeleteUserData(ctx context.Context, username string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := os.Remove(repo.db.path(username + ".json")); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(core.ErrStorageUnavailable, "deleting %s.json: %v", username, err)
	}
	return nil
}
