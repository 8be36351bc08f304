package messages

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wingedflyer/backend/internal/events"
	"github.com/wingedflyer/backend/internal/models"
	"github.com/wingedflyer/backend/pkg/response"
)

// Store is the message persistence needed by the handler.
type Store interface {
	Add(ctx context.Context, m *models.Message) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Message, error)
}

// Notifier pushes timeline updates to connected visitors.
type Notifier interface {
	Broadcast(eventID uuid.UUID, event string, payload interface{})
}

// AddRequest is the body for POST /events/:id/messages.
type AddRequest struct {
	Body string `json:"body" binding:"required"`
}

// Handler handles timeline message endpoints.
type Handler struct {
	store  Store
	notify Notifier
}

// NewHandler creates a message handler. notify may be nil.
func NewHandler(store Store, notify Notifier) *Handler {
	return &Handler{store: store, notify: notify}
}

// Add handles POST /events/:id/messages (edit key required).
func (h *Handler) Add(c *gin.Context) {
	e := c.MustGet(events.ContextEvent).(*models.Event)

	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m := &models.Message{EventID: e.ID, Body: req.Body}
	if err := h.store.Add(c.Request.Context(), m); err != nil {
		if err == models.ErrNotFound {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to add message")
		return
	}
	if h.notify != nil {
		h.notify.Broadcast(e.ID, "message_added", m)
	}
	response.Created(c, m)
}

// List handles GET /events/:id/messages (public).
func (h *Handler) List(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.store.ListByEvent(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to list messages")
		return
	}
	if list == nil {
		list = []models.Message{}
	}
	response.OK(c, list)
}
