package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/quillsocial/quill"
	"github.com/quillsocial/quill/internal/config"
	"github.com/quillsocial/quill/internal/domain"
	"github.com/quillsocial/quill/internal/present/rest/middleware"
	"github.com/quillsocial/quill/internal/present/rest/presenter"
	"github.com/quillsocial/quill/internal/service"
	"github.com/quillsocial/quill/internal/usecase"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RealtimeSource streams notice events into websocket sessions.
type RealtimeSource interface {
	Realtime(ctx context.Context, output chan<- quill.NoticeEvent)
}

type Handler struct {
	site     config.Site
	timeline *usecase.TimelineUsecase
	queue    *usecase.QueueUsecase
	signal   RealtimeSource
}

func NewHandler(
	site config.Site,
	timeline *usecase.TimelineUsecase,
	queue *usecase.QueueUsecase,
	signal RealtimeSource,
) *Handler {
	return &Handler{
		site:     site,
		timeline: timeline,
		queue:    queue,
		signal:   signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/instance", h.handleInstance)
	e.GET("/api/v1/timeline/home", h.handleHome)
	e.GET("/api/v1/timeline/public", h.handlePublic)
	e.GET("/api/v1/timeline/network", h.handleNetworkPublic)
	e.GET("/api/v1/timeline/replies", h.handleReplies)
	e.GET("/api/v1/groups/:id/timeline", h.handleGroup)
	e.GET("/api/v1/conversations/:id", h.handleConversation)
	e.POST("/api/v1/events", h.handleEnqueueEvent)
	e.GET("/api/v1/queue/stats", h.handleQueueStats)
	e.GET("/realtime", h.handleRealtime)
}

func (h *Handler) handleInstance(c echo.Context) error {
	return presenter.OK(c, echo.Map{
		"fqdn":         h.site.FQDN,
		"name":         h.site.Name,
		"registration": h.site.Registration,
	})
}

func bindStreamQuery(c echo.Context) (domain.StreamQuery, error) {
	q := domain.StreamQuery{Limit: defaultPageSize}

	if raw := c.QueryParam("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return q, errors.New("invalid offset parameter")
		}
		q.Offset = offset
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return q, errors.New("invalid limit parameter")
		}
		q.Limit = limit
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if raw := c.QueryParam("since_id"); raw != "" {
		since, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, errors.New("invalid since_id parameter")
		}
		q.SinceID = since
	}
	if raw := c.QueryParam("max_id"); raw != "" {
		max, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, errors.New("invalid max_id parameter")
		}
		q.MaxID = max
	}
	return q, nil
}

func (h *Handler) handleHome(c echo.Context) error {
	ctx := c.Request().Context()

	viewer := middleware.ViewerFrom(ctx)
	if viewer == nil {
		return presenter.Unauthorized(c, "home timeline requires a viewer")
	}

	q, err := bindStreamQuery(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	threaded := c.QueryParam("threaded") == "true"

	notices, err := h.timeline.Home(ctx, viewer.ID, viewer, q, threaded)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "profile not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, notices)
}

func (h *Handler) handlePublic(c echo.Context) error {
	ctx := c.Request().Context()

	q, err := bindStreamQuery(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	notices, err := h.timeline.Public(ctx, middleware.ViewerFrom(ctx), q)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, notices)
}

func (h *Handler) handleNetworkPublic(c echo.Context) error {
	ctx := c.Request().Context()

	q, err := bindStreamQuery(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	notices, err := h.timeline.NetworkPublic(ctx, middleware.ViewerFrom(ctx), q)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, notices)
}

func (h *Handler) handleReplies(c echo.Context) error {
	ctx := c.Request().Context()

	viewer := middleware.ViewerFrom(ctx)
	if viewer == nil {
		return presenter.Unauthorized(c, "replies timeline requires a viewer")
	}

	q, err := bindStreamQuery(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	notices, err := h.timeline.Replies(ctx, viewer.ID, viewer, q)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, notices)
}

func (h *Handler) handleGroup(c echo.Context) error {
	ctx := c.Request().Context()

	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid group id")
	}

	q, err := bindStreamQuery(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	notices, err := h.timeline.Group(ctx, groupID, middleware.ViewerFrom(ctx), q)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "group not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, notices)
}

func (h *Handler) handleConversation(c echo.Context) error {
	ctx := c.Request().Context()

	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid conversation id")
	}

	q, err := bindStreamQuery(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	notices, err := h.timeline.Conversation(ctx, conversationID, middleware.ViewerFrom(ctx), q)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, notices)
}

// handleEnqueueEvent accepts a notice event from the posting tier and queues
// it for realtime fan-out. Delivery is asynchronous; a 200 means the event is
// durably queued, not that any client has seen it.
func (h *Handler) handleEnqueueEvent(c echo.Context) error {
	ctx := c.Request().Context()

	var event quill.NoticeEvent
	if err := c.Bind(&event); err != nil {
		return presenter.BadRequestMessage(c, "invalid event body")
	}
	if event.NoticeID == 0 {
		return presenter.BadRequestMessage(c, "notice_id is required")
	}

	id, err := h.queue.Enqueue(ctx, event, service.TransportSignal)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"id": id})
}

func (h *Handler) handleQueueStats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.queue.Stats(ctx)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, stats)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	output := make(chan quill.NoticeEvent)
	go h.signal.Realtime(ctx, output)

	// buffered so the reader's send never blocks once the write loop is gone
	quit := make(chan struct{}, 1)

	go func() {
		for {
			// clients only send heartbeats; any read error ends the session
			if _, _, err := ws.ReadMessage(); err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				quit <- struct{}{}
				return
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
