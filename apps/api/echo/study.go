package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/study"
	"github.com/trezcool/ratiba/core/user"
)

type studyApi struct {
	svc      study.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerStudyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc study.Service, userSvc user.Service, validate *validator.Validate) {
	api := studyApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
	}

	// all endpoints require auth
	sg := g.Group("/study", jwt)

	sg.GET("/tasks", api.queryTasks)
	sg.POST("/tasks", api.createTask)
	sg.PUT("/tasks", api.saveTasks)
	sg.POST("/tasks/:id/complete", api.completeTask)
	sg.DELETE("/tasks/:id", api.destroyTask)

	sg.GET("/plan", api.retrievePlan)
	sg.POST("/plan/generate", api.generatePlan)

	sg.GET("/progress", api.queryProgress)
	sg.POST("/days/complete", api.completeDay)
	sg.POST("/days/skip", api.skipDay)
	sg.GET("/streak", api.retrieveStreak)

	sg.GET("/report", api.retrieveReport)
	sg.POST("/report/email", api.emailReport)

	sg.GET("/notifications", api.queryNotifications)
	sg.POST("/notifications", api.createNotification)

	sg.DELETE("", api.clearAll)
}

// username returns the authenticated user's username from the JWT claims.
func (api *studyApi) username(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	return claims.Username, nil
}

// Handlers

func (api *studyApi) queryTasks(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	tasks, err := api.svc.Tasks(ctx.Request().Context(), uname)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if tasks == nil {
		tasks = []study.StudyTask{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *studyApi) createTask(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	var data study.NewStudyTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudyTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	task, err := api.svc.AddTask(ctx.Request().Context(), uname, data)
	if err != nil {
		return errors.Wrap(err, "adding task")
	}
	return ctx.JSON(http.StatusCreated, task)
}

func (api *studyApi) saveTasks(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	var tasks []study.StudyTask
	if err := ctx.Bind(&tasks); err != nil {
		return errors.Wrap(err, "binding to StudyTask list")
	}

	if err := api.svc.SaveTasks(ctx.Request().Context(), uname, tasks); err != nil {
		if errors.Cause(err) == study.ErrInvalidTask {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "saving tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *studyApi) completeTask(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	task, err := api.svc.CompleteTask(ctx.Request().Context(), uname, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == study.ErrTaskNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "completing task")
	}
	return ctx.JSON(http.StatusOK, task)
}

func (api *studyApi) destroyTask(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteTask(ctx.Request().Context(), uname, ctx.Param("id")); err != nil {
		if errors.Cause(err) == study.ErrTaskNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studyApi) retrievePlan(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	plan, err := api.svc.Plan(ctx.Request().Context(), uname)
	if err != nil {
		return errors.Wrap(err, "retrieving plan")
	}
	if plan == nil {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *studyApi) generatePlan(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	var data study.PlanRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PlanRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	plan, err := api.svc.GeneratePlan(ctx.Request().Context(), uname, data)
	if err != nil {
		if errors.Cause(err) == study.ErrInvalidTask {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "generating plan")
	}
	return ctx.JSON(http.StatusCreated, plan)
}

func (api *studyApi) queryProgress(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	progress, err := api.svc.Progress(ctx.Request().Context(), uname)
	if err != nil {
		return errors.Wrap(err, "querying progress")
	}
	if progress == nil {
		progress = []study.DayProgress{}
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *studyApi) completeDay(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	var data DayRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DayRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	streak, err := api.svc.CompleteDay(ctx.Request().Context(), uname, data.Date)
	if err != nil {
		if errors.Cause(err) == study.ErrDayNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "completing day")
	}
	return ctx.JSON(http.StatusOK, streak)
}

func (api *studyApi) skipDay(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	var data DayRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DayRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.SkipDay(ctx.Request().Context(), uname, data.Date); err != nil {
		if errors.Cause(err) == study.ErrDayNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "skipping day")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studyApi) retrieveStreak(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	streak, err := api.svc.Streak(ctx.Request().Context(), uname)
	if err != nil {
		return errors.Wrap(err, "retrieving streak")
	}
	return ctx.JSON(http.StatusOK, streak)
}

func (api *studyApi) retrieveReport(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	report, err := api.svc.WeeklyReport(ctx.Request().Context(), uname)
	if err != nil {
		return errors.Wrap(err, "building weekly report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *studyApi) emailReport(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.EmailWeeklyReport(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "emailing weekly report")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your weekly report is on its way to your inbox."})
}

func (api *studyApi) queryNotifications(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	notes, err := api.svc.Notifications(ctx.Request().Context(), uname)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notes == nil {
		notes = []study.Notification{}
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (api *studyApi) createNotification(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	var data NotificationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NotificationRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	note, err := api.svc.AddNotification(ctx.Request().Context(), uname, data.Message)
	if err != nil {
		return errors.Wrap(err, "adding notification")
	}
	return ctx.JSON(http.StatusCreated, note)
}

func (api *studyApi) clearAll(ctx echo.Context) error {
	uname, err := api.username(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.ClearAll(ctx.Request().Context(), uname); err != nil {
		return errors.Wrap(err, "clearing study data")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	DayRequest struct {
		Date time.Time `json:"date" validate:"required"`
	}

	NotificationRequest struct {
		Message string `json:"message" validate:"required"`
	}
)

func (dr *DayRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(dr)
}

func (nr *NotificationRequest) Validate(validate *validator.Validate) error {
	nr.Message = core.CleanString(nr.Message)
	return validate.Struct(nr)
}
