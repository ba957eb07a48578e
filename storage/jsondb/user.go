package jsondb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/ratiba/core/user"
)

const usersFile = "users.json"

// userRecord is the on-disk shape of a user.User; unlike the core model it
// carries the password hash.
type userRecord struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	IsActive         bool      `json:"is_active"`
	GoalHoursPerDay  float64   `json:"goal_hours_per_day"`
	RemindersEnabled bool      `json:"reminders_enabled"`
	PasswordHash     []byte    `json:"password_hash"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	LastLogin        time.Time `json:"last_login"`
}

func newUserRecord(usr user.User) userRecord {
	return userRecord{
		ID:               usr.ID,
		Name:             usr.Name,
		Username:         usr.Username,
		Email:            usr.Email,
		IsActive:         usr.IsActive,
		GoalHoursPerDay:  usr.GoalHoursPerDay,
		RemindersEnabled: usr.RemindersEnabled,
		PasswordHash:     usr.PasswordHash,
		CreatedAt:        usr.CreatedAt,
		UpdatedAt:        usr.UpdatedAt,
		LastLogin:        usr.LastLogin,
	}
}

func (rec userRecord) user() user.User {
	return user.User{
		ID:               rec.ID,
		Name:             rec.Name,
		Username:         rec.Username,
		Email:            rec.Email,
		IsActive:         rec.IsActive,
		GoalHoursPerDay:  rec.GoalHoursPerDay,
		RemindersEnabled: rec.RemindersEnabled,
		PasswordHash:     rec.PasswordHash,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
		LastLogin:        rec.LastLogin,
	}
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// load reads the username→account mapping; a missing file is an empty mapping.
func (repo *userRepository) load() (map[string]userRecord, error) {
	users := make(map[string]userRecord)
	if _, err := repo.db.readFile(repo.db.path(usersFile), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (repo *userRepository) save(users map[string]userRecord) error {
	return repo.db.writeFile(repo.db.path(usersFile), users)
}

func isExcluded(rec userRecord, exclUsers []user.User) bool {
	for _, usr := range exclUsers {
		if usr.ID == rec.ID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users, err := repo.load()
	if err != nil {
		return err
	}
	for _, rec := range users {
		if isExcluded(rec, excludedUsers) {
			continue
		}
		if username != "" && rec.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && rec.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	users, err := repo.load()
	if err != nil {
		return user.User{}, err
	}
	if _, exists := users[usr.Username]; exists {
		return user.User{}, user.ErrUsernameExists
	}
	for _, rec := range users {
		if rec.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}

	users[usr.Username] = newUserRecord(usr)
	if err = repo.save(users); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users, err := repo.load()
	if err != nil {
		return nil, err
	}
	all := make([]user.User, 0, len(users))
	for _, rec := range users {
		all = append(all, rec.user())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	return all, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users, err := repo.load()
	if err != nil {
		return user.User{}, err
	}
	if id != "" {
		for _, rec := range users {
			if rec.ID == id {
				return rec.user(), nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users, err := repo.load()
	if err != nil {
		return user.User{}, err
	}
	if rec, ok := users[username]; ok {
		return rec.user(), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users, err := repo.load()
	if err != nil {
		return user.User{}, err
	}
	if email != "" {
		for _, rec := range users {
			if rec.Email == email {
				return rec.user(), nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users, err := repo.load()
	if err != nil {
		return user.User{}, err
	}
	if username != "" {
		if rec, ok := users[username]; ok {
			return rec.user(), nil
		}
		for _, rec := range users {
			if rec.Email == username {
				return rec.user(), nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	users, err := repo.load()
	if err != nil {
		return user.User{}, err
	}
	for uname, rec := range users {
		if rec.ID == usr.ID {
			usr.Username = uname // the username is the account's key; it cannot change
			users[uname] = newUserRecord(usr)
			if err = repo.save(users); err != nil {
				return user.User{}, err
			}
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	users, err := repo.load()
	if err != nil {
		return err
	}
	for uname, rec := range users {
		if rec.ID == id {
			delete(users, uname)
			return repo.save(users)
		}
	}
	return user.ErrNotFound
}
