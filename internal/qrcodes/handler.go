package qrcodes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wingedflyer/backend/config"
	"github.com/wingedflyer/backend/internal/models"
	"github.com/wingedflyer/backend/pkg/response"
)

// EventGetter loads an event by id.
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// ArtifactReader reads locally persisted QR PNGs.
type ArtifactReader interface {
	Read(eventID string) ([]byte, error)
	Write(eventID string, png []byte) error
}

// MirrorReader fetches mirrored QR artifacts from object storage.
type MirrorReader interface {
	DownloadQR(ctx context.Context, key string) ([]byte, error)
}

// Handler serves the stored QR artifact for an event.
type Handler struct {
	repo      EventGetter
	artifacts ArtifactReader
	mirror    MirrorReader
	app       config.AppConfig
	logger    *zap.Logger
}

// NewHandler creates a QR handler. mirror may be nil.
func NewHandler(repo EventGetter, artifacts ArtifactReader, mirror MirrorReader, app config.AppConfig, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, artifacts: artifacts, mirror: mirror, app: app, logger: logger}
}

// Get handles GET /events/:id/qr and GET /p/:id/qr. The artifact is derived
// state: if it went missing locally, the S3 mirror is tried first, and
// re-encoding the stable URL yields the same code as a last resort.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	// Private events must look missing; their QR would confirm existence.
	if !e.IsPublic {
		response.NotFound(c, "event not found")
		return
	}

	png, err := h.artifacts.Read(id.String())
	if err != nil {
		png = nil
		if h.mirror != nil && e.QRKey != "" {
			if b, merr := h.mirror.DownloadQR(c.Request.Context(), e.QRKey); merr == nil {
				png = b
			} else {
				h.logger.Warn("qr mirror fetch failed", zap.Error(merr), zap.String("event_id", id.String()))
			}
		}
		if png == nil {
			png, err = Encode(h.app.PageURL(id.String()), h.app.QRSizePx)
			if err != nil {
				response.Internal(c, "failed to generate qr code")
				return
			}
		}
		if werr := h.artifacts.Write(id.String(), png); werr != nil {
			h.logger.Warn("qr artifact rewrite failed", zap.Error(werr), zap.String("event_id", id.String()))
		}
	}
	response.PNG(c, png)
}
