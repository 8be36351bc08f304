package pages

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wingedflyer/backend/internal/models"
	"github.com/wingedflyer/backend/pkg/response"
)

// Store is the page persistence needed by the handler.
type Store interface {
	GetPublic(ctx context.Context, id uuid.UUID) (*models.Event, error)
	RecordView(ctx context.Context, eventID uuid.UUID, viewerIP string) error
}

// MessageLister loads an event's timeline for display.
type MessageLister interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Message, error)
}

// Handler serves the public visitor page.
type Handler struct {
	store    Store
	msgs     MessageLister
	renderer *Renderer
	logger   *zap.Logger
}

// NewHandler creates a page handler.
func NewHandler(store Store, msgs MessageLister, renderer *Renderer, logger *zap.Logger) *Handler {
	return &Handler{store: store, msgs: msgs, renderer: renderer, logger: logger}
}

// Get handles GET /p/:id. Reads the latest state on every request; the QR
// code always lands here regardless of how often the event was edited.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.String(http.StatusNotFound, "Event not found")
		return
	}
	e, err := h.store.GetPublic(c.Request.Context(), id)
	if err != nil {
		// Private and missing events look the same to visitors.
		c.String(http.StatusNotFound, "Event not found")
		return
	}

	msgs, err := h.msgs.ListByEvent(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("list messages failed", zap.Error(err), zap.String("event_id", id.String()))
	}

	if err := h.store.RecordView(c.Request.Context(), id, c.ClientIP()); err != nil {
		h.logger.Warn("record view failed", zap.Error(err), zap.String("event_id", id.String()))
	}

	page, err := h.renderer.RenderPage(e, msgs)
	if err != nil {
		h.logger.Error("render page failed", zap.Error(err), zap.String("event_id", id.String()))
		c.String(http.StatusInternalServerError, "Failed to render page")
		return
	}
	response.HTML(c, page)
}
