package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/rajan-marasini/task-kanban/domain"
)

const healthTimeout = 2 * time.Second

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	if d.Log == nil {
		d.Log = log.StandardLogger()
	}
	mw := []echo.MiddlewareFunc{RequestMetrics(d.Log), RequireAuth(d.Auth)}

	e.GET("/", root)
	e.GET("/healthz", healthz(d.Store))
	e.GET("/columns", getColumns(d.Store), mw...)
	e.GET("/todos", getTodos(d.Store), mw...)
	e.GET("/todos/:id", getTodo(d.Store), mw...)
	e.POST("/todos", createTodo(d), mw...)
	e.PATCH("/todos/:id", patchTodo(d), mw...)
	e.DELETE("/todos/:id", deleteTodo(d), mw...)
}

func root(c echo.Context) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Message: msgRunning})
}

func healthz(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		if _, err := store.ListColumns(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, "storage unavailable")
		}
		return c.String(http.StatusOK, "ok")
	}
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{Success: false, Message: msg})
}

func storageFailure(c echo.Context, err error, msg string) error {
	metricsFor(c).SetErrorStage("storage")
	c.Logger().Error(err)
	return fail(c, http.StatusInternalServerError, msg)
}

func getColumns(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		m := metricsFor(c)
		start := time.Now()
		cols, err := store.ListColumns(c.Request().Context())
		m.ObserveStore(time.Since(start))
		if err != nil {
			return storageFailure(c, err, msgColumnsFailed)
		}
		m.SetItems(len(cols))
		return c.JSON(http.StatusOK, envelope{Success: true, Data: cols})
	}
}

func getTodos(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		m := metricsFor(c)
		start := time.Now()
		tasks, err := store.ListTasks(c.Request().Context())
		m.ObserveStore(time.Since(start))
		if err != nil {
			return storageFailure(c, err, msgTodosFailed)
		}
		m.SetItems(len(tasks))
		return c.JSON(http.StatusOK, envelope{Success: true, Data: tasks})
	}
}

func getTodo(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		m := metricsFor(c)
		start := time.Now()
		task, err := store.GetTask(c.Request().Context(), c.Param("id"))
		m.ObserveStore(time.Since(start))
		if errors.Is(err, domain.ErrNotFound) {
			return fail(c, http.StatusNotFound, msgTodoNotFound)
		}
		if err != nil {
			return storageFailure(c, err, msgTodoFailed)
		}
		return c.JSON(http.StatusOK, envelope{Success: true, Data: task})
	}
}

func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// checkColumn reports a validation error when columnID is not on the board.
func checkColumn(ctx context.Context, store Storage, columnID string) error {
	cols, err := store.ListColumns(ctx)
	if err != nil {
		return err
	}
	for _, col := range cols {
		if col.ID == columnID {
			return nil
		}
	}
	return &domain.ValidationError{Field: "columnId", Reason: "unknown column " + columnID}
}

func validationFailure(c echo.Context, err error) error {
	metricsFor(c).SetErrorStage("validation")
	return fail(c, http.StatusBadRequest, err.Error())
}

func createTodo(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		m := metricsFor(c)

		var in domain.NewTask
		if err := decodeBody(c, &in); err != nil {
			m.SetErrorStage("decode")
			return fail(c, http.StatusBadRequest, msgInvalidBody)
		}
		if strings.TrimSpace(in.Title) == "" || in.ColumnID == "" {
			m.SetErrorStage("validation")
			return fail(c, http.StatusBadRequest, msgRequired)
		}
		if err := in.Validate(); err != nil {
			return validationFailure(c, err)
		}
		if err := checkColumn(ctx, d.Store, in.ColumnID); err != nil {
			if domain.IsValidation(err) {
				return validationFailure(c, err)
			}
			return storageFailure(c, err, msgCreateFailed)
		}

		scope := userFor(c)
		key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
		recorded := false
		if key != "" && d.Deduper != nil {
			added, err := d.Deduper.Add(ctx, scope, key)
			switch {
			case err != nil:
				d.Log.WithField("key", key).WithError(err).Warn("idempotency check failed; creating without it")
			case !added:
				m.SetErrorStage("duplicate")
				return fail(c, http.StatusConflict, msgDuplicateRequest)
			default:
				recorded = true
			}
		}

		start := time.Now()
		task, err := d.Store.CreateTask(ctx, in)
		m.ObserveStore(time.Since(start))
		if err != nil {
			if recorded {
				if rerr := d.Deduper.Remove(context.WithoutCancel(ctx), scope, key); rerr != nil {
					d.Log.WithField("key", key).WithError(rerr).Error("idempotency rollback failed")
				}
			}
			return storageFailure(c, err, msgCreateFailed)
		}

		d.Changes.Dispatch(changeEvent(domain.TaskCreated, task))
		return c.JSON(http.StatusCreated, envelope{Success: true, Data: task})
	}
}

func patchTodo(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		m := metricsFor(c)
		id := c.Param("id")

		var patch domain.TaskPatch
		if err := decodeBody(c, &patch); err != nil {
			m.SetErrorStage("decode")
			return fail(c, http.StatusBadRequest, msgInvalidBody)
		}
		if err := patch.Validate(); err != nil {
			return validationFailure(c, err)
		}
		if patch.ColumnID != nil {
			if err := checkColumn(ctx, d.Store, *patch.ColumnID); err != nil {
				if domain.IsValidation(err) {
					return validationFailure(c, err)
				}
				return storageFailure(c, err, msgUpdateFailed)
			}
		}

		start := time.Now()
		var (
			task domain.Task
			err  error
		)
		if patch.Empty() {
			task, err = d.Store.GetTask(ctx, id)
		} else {
			task, err = d.Store.PatchTask(ctx, id, patch)
		}
		m.ObserveStore(time.Since(start))
		if errors.Is(err, domain.ErrNotFound) {
			return fail(c, http.StatusNotFound, msgTodoNotFound)
		}
		if errors.Is(err, domain.ErrConflict) {
			m.SetErrorStage("conflict")
			return fail(c, http.StatusConflict, msgTodoConflict)
		}
		if err != nil {
			return storageFailure(c, err, msgUpdateFailed)
		}

		if !patch.Empty() {
			d.Changes.Dispatch(changeEvent(domain.TaskUpdated, task))
		}
		return c.JSON(http.StatusOK, envelope{Success: true, Data: task})
	}
}

func deleteTodo(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		m := metricsFor(c)
		id := c.Param("id")

		start := time.Now()
		err := d.Store.DeleteTask(c.Request().Context(), id)
		m.ObserveStore(time.Since(start))
		if errors.Is(err, domain.ErrNotFound) {
			return fail(c, http.StatusNotFound, msgTodoNotFound)
		}
		if err != nil {
			return storageFailure(c, err, msgDeleteFailed)
		}

		d.Changes.Dispatch(domain.ChangeEvent{Type: domain.TaskDeleted, TaskID: id, Time: nextEventTime()})
		return c.JSON(http.StatusOK, envelope{Success: true, Message: msgTodoDeleted})
	}
}

func changeEvent(kind string, t domain.Task) domain.ChangeEvent {
	return domain.ChangeEvent{
		Type:     kind,
		TaskID:   t.ID,
		ColumnID: t.ColumnID,
		Position: t.Position,
		Time:     nextEventTime(),
	}
}
