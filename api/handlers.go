package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/board"
	"kanban-api/domain"
	"kanban-api/drag"
)

// Register wires up all routes on the provided Echo instance. It installs the
// HTML renderer when e has none and starts publishing board changes to the
// stream endpoint.
func Register(e *echo.Echo, svc Services, logger *log.Logger) error {
	if svc.Auth == nil {
		svc.Auth = Anonymous{}
	}
	if e.Renderer == nil {
		r, err := NewTemplateRenderer()
		if err != nil {
			return err
		}
		e.Renderer = r
	}

	broker := NewBroker(logger)
	broker.Attach(svc.Board)

	e.GET("/healthz", healthz(svc.Board))
	e.GET("/board", renderBoard(svc), requireUser(svc.Auth))
	e.GET("/api/stream", streamBoard(broker), requireUser(svc.Auth))

	g := e.Group("/api", observe(logger), requireUser(svc.Auth), commandBody())
	g.GET("/board", getBoard(svc.Board))
	g.POST("/stories", createStory(svc.Board, svc.Deduper, logger))
	g.POST("/stories/:id/move", moveStory(svc.Board))
	g.DELETE("/sections/:section/stories/:id", deleteStory(svc.Board))

	g.POST("/drag/pickup", pickUp(svc.Drag))
	g.POST("/drag/track", track(svc.Drag))
	g.POST("/drag/release", release(svc.Drag))
	g.POST("/drag/cancel", cancelDrag(svc.Drag))
	g.GET("/drag", activeDrag(svc.Drag))

	g.GET("/preferences", getPreferences(svc.Preferences))
	g.PUT("/preferences", putPreferences(svc.Preferences))
	return nil
}

func healthz(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := b.Ping(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, err.Error())
		}
		return c.NoContent(http.StatusOK)
	}
}

// decodeBody reads a JSON body prepared by commandBody and rejects unknown
// fields.
func decodeBody(c echo.Context, v any) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	dec := sonic.ConfigStd.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func invalidBody(c echo.Context, err error) error {
	metricsFrom(c).SetErrorStage("decode")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return c.String(http.StatusRequestEntityTooLarge, "body too large")
	}
	return c.String(http.StatusBadRequest, "invalid body")
}

// statusForError maps command errors to response codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrUnknownSection),
		errors.Is(err, domain.ErrUnknownTag),
		errors.Is(err, domain.ErrUnknownViewMode),
		errors.Is(err, domain.ErrUnknownTheme):
		return http.StatusBadRequest
	case errors.Is(err, drag.ErrUnknownStory), errors.Is(err, drag.ErrNoGesture):
		return http.StatusNotFound
	case errors.Is(err, drag.ErrGestureInFlight), errors.Is(err, drag.ErrStaleGesture):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// persistMessage reports a save failure of a transition that was applied.
// Other errors are returned unchanged for the caller to map.
func persistMessage(c echo.Context, err error) (string, error) {
	if err == nil {
		return "", nil
	}
	var perr *board.PersistError
	if !errors.As(err, &perr) {
		return "", err
	}
	metricsFrom(c).SetErrorStage("persist")
	c.Logger().Warn(perr)
	return perr.Error(), nil
}

func commandFailed(c echo.Context, stage string, err error) error {
	metricsFrom(c).SetErrorStage(stage)
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	return c.String(status, err.Error())
}

func getBoard(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		snap := b.Snapshot()
		metricsFrom(c).SetStoriesTotal(snap.Len())
		data, err := domain.EncodePartition(snap)
		if err != nil {
			return commandFailed(c, "encode_response", err)
		}
		return c.JSONBlob(http.StatusOK, data)
	}
}

func createStory(b Board, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		metrics := metricsFrom(c)
		metrics.SetCommand("create")

		var req createStoryRequest
		if err := decodeBody(c, &req); err != nil {
			return invalidBody(c, err)
		}
		section := domain.SectionTodo
		if req.Section != "" {
			s, err := domain.ParseSection(req.Section)
			if err != nil {
				return commandFailed(c, "validate", err)
			}
			section = s
		}

		userID := userFrom(c)
		key := c.Request().Header.Get(IdempotencyKeyHeader)
		if deduper == nil {
			key = ""
		}
		if key != "" {
			added, err := deduper.Add(ctx, userID, key)
			if err != nil {
				metrics.SetErrorStage("deduper")
				c.Logger().Error(err)
				return c.String(http.StatusServiceUnavailable, "idempotency store unavailable")
			}
			if !added {
				metrics.SetErrorStage("duplicate")
				return c.String(http.StatusConflict, "duplicate request")
			}
		}

		start := time.Now()
		story, err := b.Create(ctx, section, req.Title, domain.Tag(req.Tag))
		metrics.ObserveApply(time.Since(start))
		msg, err := persistMessage(c, err)
		if err != nil {
			if key != "" {
				if rerr := deduper.Remove(ctx, userID, key); rerr != nil {
					logger.WithError(rerr).WithField("key", key).Warn("release idempotency key")
				}
			}
			return commandFailed(c, "create", err)
		}
		return c.JSON(http.StatusCreated, createStoryResponse{Story: story, Section: section, Error: msg})
	}
}

func moveStory(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics := metricsFrom(c)
		metrics.SetCommand("move")

		var req moveStoryRequest
		if err := decodeBody(c, &req); err != nil {
			return invalidBody(c, err)
		}
		from, err := domain.ParseSection(req.From)
		if err != nil {
			return commandFailed(c, "validate", err)
		}
		to, err := domain.ParseSection(req.To)
		if err != nil {
			return commandFailed(c, "validate", err)
		}

		start := time.Now()
		moved, err := b.Move(c.Request().Context(), c.Param("id"), from, to)
		metrics.ObserveApply(time.Since(start))
		msg, err := persistMessage(c, err)
		if err != nil {
			return commandFailed(c, "move", err)
		}
		return c.JSON(http.StatusOK, moveStoryResponse{Moved: moved, Error: msg})
	}
}

func deleteStory(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics := metricsFrom(c)
		metrics.SetCommand("delete")

		section, err := domain.ParseSection(c.Param("section"))
		if err != nil {
			return commandFailed(c, "validate", err)
		}
		start := time.Now()
		deleted, err := b.Delete(c.Request().Context(), section, c.Param("id"))
		metrics.ObserveApply(time.Since(start))
		msg, err := persistMessage(c, err)
		if err != nil {
			return commandFailed(c, "delete", err)
		}
		return c.JSON(http.StatusOK, deleteStoryResponse{Deleted: deleted, Error: msg})
	}
}

func pickUp(d Dragger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metricsFrom(c).SetCommand("pickup")
		var req pickUpRequest
		if err := decodeBody(c, &req); err != nil {
			return invalidBody(c, err)
		}
		lift, err := d.PickUp(req.StoryID, drag.Pointer{X: req.X, Y: req.Y})
		if err != nil {
			return commandFailed(c, "pickup", err)
		}
		return c.JSON(http.StatusOK, lift)
	}
}

func track(d Dragger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metricsFrom(c).SetCommand("track")
		var req trackRequest
		if err := decodeBody(c, &req); err != nil {
			return invalidBody(c, err)
		}
		if err := d.Track(req.GestureID, drag.Pointer{X: req.X, Y: req.Y}); err != nil {
			return commandFailed(c, "track", err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func release(d Dragger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics := metricsFrom(c)
		metrics.SetCommand("release")
		var req releaseRequest
		if err := decodeBody(c, &req); err != nil {
			return invalidBody(c, err)
		}
		start := time.Now()
		outcome, err := d.Release(c.Request().Context(), req.GestureID, req.Target)
		metrics.ObserveApply(time.Since(start))
		msg, err := persistMessage(c, err)
		if err != nil {
			return commandFailed(c, "release", err)
		}
		return c.JSON(http.StatusOK, releaseResponse{Outcome: outcome, Error: msg})
	}
}

func cancelDrag(d Dragger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metricsFrom(c).SetCommand("cancel")
		var req cancelRequest
		if err := decodeBody(c, &req); err != nil {
			return invalidBody(c, err)
		}
		if err := d.Cancel(req.GestureID); err != nil {
			return commandFailed(c, "cancel", err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func activeDrag(d Dragger) echo.HandlerFunc {
	return func(c echo.Context) error {
		lift, ok := d.Active()
		if !ok {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(http.StatusOK, lift)
	}
}

func getPreferences(p PreferenceStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		prefs, err := p.Get(c.Request().Context())
		if err != nil {
			return commandFailed(c, "storage", err)
		}
		return c.JSON(http.StatusOK, prefs)
	}
}

func putPreferences(p PreferenceStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		metricsFrom(c).SetCommand("preferences")
		var req domain.Preferences
		if err := decodeBody(c, &req); err != nil {
			return invalidBody(c, err)
		}
		prefs, err := p.Set(c.Request().Context(), req)
		if err != nil {
			return commandFailed(c, "preferences", err)
		}
		return c.JSON(http.StatusOK, prefs)
	}
}
