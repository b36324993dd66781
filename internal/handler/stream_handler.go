package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"medcircle/internal/errors"
	"medcircle/internal/logging"
	"medcircle/internal/metrics"
	"medcircle/internal/model"
	"medcircle/internal/realtime"
	"medcircle/internal/service"
)

const streamHeartbeat = 25 * time.Second

// StreamHandler pushes live item and profile snapshots over server-sent events.
type StreamHandler struct {
	content   service.ContentService
	comments  service.CommentService
	users     service.UserService
	events    realtime.Subscriber
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(content service.ContentService, comments service.CommentService, users service.UserService, events realtime.Subscriber) *StreamHandler {
	return &StreamHandler{content: content, comments: comments, users: users, events: events, heartbeat: streamHeartbeat}
}

// Snapshot is the full state of an item as pushed to subscribers.
type Snapshot struct {
	Item     *model.Item           `json:"item"`
	Comments []model.CommentThread `json:"comments"`
}

// Stream godoc
// @Summary Live updates for one item
// @Description Server-sent events. Each "snapshot" event carries the item and its comment threads; "deleted" ends the stream.
// @Tags content
// @Produce text/event-stream
// @Param kind path string true "posts or questions"
// @Param id path string true "Item ID"
// @Success 200 {object} Snapshot
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id}/stream [get]
func (h *StreamHandler) Stream(c echo.Context) error {
	ref, err := itemRef(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	// Subscribe first so nothing published between the read and the subscription is lost.
	events, err := h.events.Subscribe(ctx, realtime.ItemChannel(ref))
	if err != nil {
		return respondError(c, err)
	}
	snap, err := h.snapshot(ctx, ref)
	if err != nil {
		return respondError(c, err)
	}

	w := openStream(c)
	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()

	if err := writeEvent(w, "snapshot", snap); err != nil {
		return nil
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := ping(w); err != nil {
				return nil
			}
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if evt.Op == realtime.OpItemDeleted {
				_ = writeEvent(w, "deleted", evt)
				return nil
			}
			snap, err := h.snapshot(ctx, ref)
			if stderrors.Is(err, errors.ErrItemNotFound) {
				_ = writeEvent(w, "deleted", realtime.ItemEvent(realtime.OpItemDeleted, ref))
				return nil
			}
			if err != nil {
				logging.Logger.Warn().Err(err).Str("kind", string(ref.Kind)).Msg("stream snapshot")
				continue
			}
			if err := writeEvent(w, "snapshot", snap); err != nil {
				return nil
			}
		}
	}
}

// UserStream godoc
// @Summary Live updates for one profile
// @Description Server-sent events. Each "profile" event carries the public profile, so trusted and admin badges update in place.
// @Tags users
// @Produce text/event-stream
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/stream [get]
func (h *StreamHandler) UserStream(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	events, err := h.events.Subscribe(ctx, realtime.UserChannel(id))
	if err != nil {
		return respondError(c, err)
	}
	user, err := h.users.GetUser(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	w := openStream(c)
	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()

	if err := writeEvent(w, "profile", user.PublicView()); err != nil {
		return nil
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := ping(w); err != nil {
				return nil
			}
		case _, ok := <-events:
			if !ok {
				return nil
			}
			user, err := h.users.GetUser(ctx, id)
			if stderrors.Is(err, errors.ErrUserNotFound) {
				return nil
			}
			if err != nil {
				logging.Logger.Warn().Err(err).Msg("profile stream snapshot")
				continue
			}
			if err := writeEvent(w, "profile", user.PublicView()); err != nil {
				return nil
			}
		}
	}
}

func openStream(c echo.Context) *echo.Response {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return w
}

func ping(w *echo.Response) error {
	if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func (h *StreamHandler) snapshot(ctx context.Context, ref model.ItemRef) (*Snapshot, error) {
	item, err := h.content.Fresh(ctx, ref)
	if err != nil {
		return nil, err
	}
	threads, err := h.comments.ListComments(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Item: item, Comments: threads}, nil
}

func writeEvent(w *echo.Response, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
