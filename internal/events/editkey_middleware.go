package events

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wingedflyer/backend/internal/models"
	"github.com/wingedflyer/backend/pkg/response"
	"github.com/wingedflyer/backend/pkg/utils"
)

const (
	// HeaderEditKey carries the per-event edit key on organizer requests.
	HeaderEditKey = "X-Edit-Key"
	// ContextEvent is the gin context key for the event loaded by RequireEditKey.
	ContextEvent = "event"
)

// Getter loads an event by id.
type Getter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// RequireEditKey validates the X-Edit-Key header against the event's stored
// hash and puts the loaded event into the context. There are no accounts:
// holding the key is the only proof of organizer access.
func RequireEditKey(repo Getter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid event id")
			c.Abort()
			return
		}
		key := c.GetHeader(HeaderEditKey)
		if key == "" {
			response.Unauthorized(c, "missing edit key")
			c.Abort()
			return
		}
		e, err := repo.GetByID(c.Request.Context(), id)
		if err != nil {
			response.NotFound(c, "event not found")
			c.Abort()
			return
		}
		if !utils.CheckEditKey(key, e.EditKeyHash) {
			response.Forbidden(c, "invalid edit key")
			c.Abort()
			return
		}
		c.Set(ContextEvent, e)
		c.Next()
	}
}
