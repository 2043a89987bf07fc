package blogapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/apperr"
	"github.com/eringen/blogapi/internal/auth"
	"github.com/eringen/blogapi/internal/store"
)

type taskRequest struct {
	Name      string     `json:"name" validate:"required,max=200"`
	Progress  string     `json:"progress" validate:"omitempty,oneof=todo in-progress done"`
	Sprint    int        `json:"sprint" validate:"gte=0"`
	StartDate *time.Time `json:"start_date"`
}

func (r taskRequest) input() store.TaskInput {
	in := store.TaskInput{
		Name:      r.Name,
		Progress:  r.Progress,
		Sprint:    r.Sprint,
		StartDate: r.StartDate,
	}
	if in.Progress == "" {
		in.Progress = store.ProgressTodo
	}
	return in
}

type patchTaskRequest struct {
	Name      *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Progress  *string    `json:"progress" validate:"omitempty,oneof=todo in-progress done"`
	Sprint    *int       `json:"sprint" validate:"omitempty,gte=0"`
	StartDate *time.Time `json:"start_date"`
}

func (a *App) handleListTasks(c echo.Context) error {
	sprint, err := queryInt(c, "sprint")
	if err != nil {
		return err
	}
	progress := c.QueryParam("progress")
	switch progress {
	case "", store.ProgressTodo, store.ProgressInProgress, store.ProgressDone:
	default:
		return apperr.E(apperr.Validation, "progress must be one of todo, in-progress, done")
	}
	tasks, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) ([]store.Task, error) {
		return tx.Tasks().List(ctx, store.TaskFilter{Sprint: sprint, Progress: progress})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

func (a *App) handleCreateTask(c echo.Context) error {
	var req taskRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	task, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Task, error) {
		owner, err := a.principal(ctx, c, tx)
		if err != nil {
			return store.Task{}, err
		}
		return tx.Tasks().Create(ctx, owner.ID, req.input())
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

func (a *App) handleGetTask(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	task, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Task, error) {
		return tx.Tasks().Get(ctx, id)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// ownedTask loads a task and checks the caller may change it. The lookup
// comes first so a missing task reports NotFound rather than Forbidden.
func (a *App) ownedTask(ctx context.Context, c echo.Context, tx *store.Tx, id int64) (store.Task, error) {
	actor, err := a.principal(ctx, c, tx)
	if err != nil {
		return store.Task{}, err
	}
	task, err := tx.Tasks().Get(ctx, id)
	if err != nil {
		return store.Task{}, err
	}
	return task, auth.CheckOwner(actor.ID, actor.Role, task.OwnerID, "task")
}

func (a *App) handleReplaceTask(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req taskRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	task, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Task, error) {
		if _, err := a.ownedTask(ctx, c, tx, id); err != nil {
			return store.Task{}, err
		}
		return tx.Tasks().Replace(ctx, id, req.input())
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (a *App) handlePatchTask(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req patchTaskRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	task, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Task, error) {
		if _, err := a.ownedTask(ctx, c, tx, id); err != nil {
			return store.Task{}, err
		}
		return tx.Tasks().Update(ctx, id, store.TaskPatch{
			Name:      req.Name,
			Progress:  req.Progress,
			Sprint:    req.Sprint,
			StartDate: req.StartDate,
		})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (a *App) handleDeleteTask(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	_, err = inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (struct{}, error) {
		if _, err := a.ownedTask(ctx, c, tx, id); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, tx.Tasks().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detailResponse{Detail: "Task deleted"})
}
