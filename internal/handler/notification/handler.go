package notification

import (
	"github.com/gin-gonic/gin"

	"github.com/suminyol/ayursutra-api/internal/handler"
	"github.com/suminyol/ayursutra-api/internal/service/notification"
	"github.com/suminyol/ayursutra-api/pkg/httputil"
)

type Handler struct {
	service notification.Service
}

func NewHandler(service notification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.PUT("/:id/read", h.MarkRead)
}

func (h *Handler) List(c *gin.Context) {
	actor := handler.Actor(c)
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.service.ListForUser(c.Request.Context(), actor.UserID, unreadOnly)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, notifications)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	notification, err := h.service.MarkRead(c.Request.Context(), handler.Actor(c).UserID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, notification)
}
