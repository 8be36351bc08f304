package events

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wingedflyer/backend/config"
	"github.com/wingedflyer/backend/internal/models"
	"github.com/wingedflyer/backend/internal/qrcodes"
	"github.com/wingedflyer/backend/pkg/queue"
	"github.com/wingedflyer/backend/pkg/response"
	"github.com/wingedflyer/backend/pkg/utils"
)

// Store is the event persistence needed by the handler.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Update(ctx context.Context, id uuid.UUID, title, content string, isPublic bool) (*models.Event, error)
	SetUrgentMessage(ctx context.Context, id uuid.UUID, msg string) (*models.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ArtifactStore persists generated QR PNGs locally.
type ArtifactStore interface {
	Write(eventID string, png []byte) error
	Remove(eventID string) error
}

// MirrorStore removes mirrored QR artifacts from object storage.
type MirrorStore interface {
	DeleteQR(ctx context.Context, key string) error
}

// Enqueuer schedules the S3 mirror of a QR artifact.
type Enqueuer interface {
	EnqueueQRUpload(ctx context.Context, payload queue.QRUploadPayload) error
}

// Notifier pushes page-update events to connected visitors.
type Notifier interface {
	Broadcast(eventID uuid.UUID, event string, payload interface{})
}

// ViewerCounter reports currently connected live viewers for an event.
type ViewerCounter interface {
	Viewers(eventID uuid.UUID) int
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content" binding:"required"`
	IsPublic *bool  `json:"is_public"`
}

// UpdateRequest is the body for PATCH /events/:id. Omitted fields keep their
// current value; provided fields replace it (last write wins).
type UpdateRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	IsPublic *bool   `json:"is_public"`
}

// UrgentRequest is the body for PUT /events/:id/urgent. Empty message clears
// the banner.
type UrgentRequest struct {
	Message string `json:"message"`
}

// CreateResponse returns the new event together with the edit key. The key is
// shown exactly once; only its hash is stored.
type CreateResponse struct {
	Event   *models.Event `json:"event"`
	EditKey string        `json:"edit_key"`
	PageURL string        `json:"page_url"`
	QRURL   string        `json:"qr_url"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	store     Store
	artifacts ArtifactStore
	mirror    MirrorStore
	enq       Enqueuer
	notify    Notifier
	viewers   ViewerCounter
	app       config.AppConfig
	logger    *zap.Logger
}

// NewHandler creates an event handler. mirror, enq, notify and viewers may be nil.
func NewHandler(store Store, artifacts ArtifactStore, mirror MirrorStore, enq Enqueuer, notify Notifier, viewers ViewerCounter, app config.AppConfig, logger *zap.Logger) *Handler {
	return &Handler{store: store, artifacts: artifacts, mirror: mirror, enq: enq, notify: notify, viewers: viewers, app: app, logger: logger}
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	title := req.Title
	if title == "" {
		title = models.DefaultTitle
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	key, err := utils.NewEditKey()
	if err != nil {
		response.Internal(c, "failed to generate edit key")
		return
	}
	hash, err := utils.HashEditKey(key)
	if err != nil {
		response.Internal(c, "failed to hash edit key")
		return
	}

	e := &models.Event{
		Title:       title,
		Content:     req.Content,
		IsPublic:    isPublic,
		EditKeyHash: hash,
	}
	if err := h.store.Create(c.Request.Context(), e); err != nil {
		response.Internal(c, "failed to create event")
		return
	}

	// The QR is generated once, here. It encodes the stable page URL, so no
	// later update ever invalidates the printed code.
	pageURL := h.app.PageURL(e.ID.String())
	if png, err := qrcodes.Encode(pageURL, h.app.QRSizePx); err != nil {
		h.logger.Warn("qr encode failed", zap.Error(err), zap.String("event_id", e.ID.String()))
	} else if err := h.artifacts.Write(e.ID.String(), png); err != nil {
		h.logger.Warn("qr artifact write failed", zap.Error(err), zap.String("event_id", e.ID.String()))
	} else if h.enq != nil {
		if err := h.enq.EnqueueQRUpload(c.Request.Context(), queue.QRUploadPayload{EventID: e.ID}); err != nil {
			h.logger.Warn("qr upload enqueue failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		}
	}

	response.Created(c, CreateResponse{
		Event:   e,
		EditKey: key,
		PageURL: pageURL,
		QRURL:   pageURL + "/qr",
	})
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// Update handles PATCH /events/:id (edit key required).
func (h *Handler) Update(c *gin.Context) {
	e := c.MustGet(ContextEvent).(*models.Event)

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	title, content, isPublic := e.Title, e.Content, e.IsPublic
	if req.Title != nil {
		title = *req.Title
	}
	if req.Content != nil {
		content = *req.Content
	}
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	if content == "" {
		response.BadRequest(c, "content cannot be empty")
		return
	}

	updated, err := h.store.Update(c.Request.Context(), e.ID, title, content, isPublic)
	if err != nil {
		if err == models.ErrNotFound {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to update event")
		return
	}
	if h.notify != nil {
		h.notify.Broadcast(e.ID, "page_updated", gin.H{"updated_at": updated.UpdatedAt})
	}
	response.OK(c, updated)
}

// SetUrgent handles PUT /events/:id/urgent (edit key required).
func (h *Handler) SetUrgent(c *gin.Context) {
	e := c.MustGet(ContextEvent).(*models.Event)

	var req UrgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	updated, err := h.store.SetUrgentMessage(c.Request.Context(), e.ID, req.Message)
	if err != nil {
		if err == models.ErrNotFound {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to set urgent message")
		return
	}
	if h.notify != nil {
		h.notify.Broadcast(e.ID, "urgent_updated", gin.H{"message": req.Message})
	}
	response.OK(c, updated)
}

// Delete handles DELETE /events/:id (edit key required).
func (h *Handler) Delete(c *gin.Context) {
	e := c.MustGet(ContextEvent).(*models.Event)

	if err := h.store.Delete(c.Request.Context(), e.ID); err != nil {
		if err == models.ErrNotFound {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to delete event")
		return
	}
	if err := h.artifacts.Remove(e.ID.String()); err != nil {
		h.logger.Warn("qr artifact remove failed", zap.Error(err), zap.String("event_id", e.ID.String()))
	}
	if h.mirror != nil && e.QRKey != "" {
		if err := h.mirror.DeleteQR(c.Request.Context(), e.QRKey); err != nil {
			h.logger.Warn("qr mirror delete failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		}
	}
	if h.notify != nil {
		h.notify.Broadcast(e.ID, "event_deleted", nil)
	}
	response.NoContent(c)
}

// Stats handles GET /events/:id/stats (edit key required).
func (h *Handler) Stats(c *gin.Context) {
	e := c.MustGet(ContextEvent).(*models.Event)

	live := 0
	if h.viewers != nil {
		live = h.viewers.Viewers(e.ID)
	}
	response.OK(c, gin.H{
		"event_id":     e.ID,
		"views":        e.ViewCount,
		"live_viewers": live,
	})
}
