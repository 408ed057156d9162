package queues

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qdispatch/common"
	"qdispatch/middleware"
)

// Handler handles HTTP requests for queue administration.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{svc: service}
}

// RegisterRoutes registers the handler routes.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	queues := api.Group("/v1/queues")
	{
		queues.POST("", h.CreateQueue)
		queues.GET("", h.ListQueues)
	}
}

// CreateQueuePayload is the request body for POST /v1/queues.
type CreateQueuePayload struct {
	Name          string `json:"name" binding:"required"`
	AvgHandleTime *int   `json:"avg_handle_time" binding:"omitempty,min=1"`
}

// CreateQueue handles POST /v1/queues.
func (h *Handler) CreateQueue(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var payload CreateQueuePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		send(middleware.Response{
			Code:    http.StatusBadRequest,
			Message: "Queue name is required",
			Error:   err,
		})
		return
	}

	queue, err := h.svc.Create(c.Request.Context(), payload.Name, payload.AvgHandleTime)
	if err != nil {
		send(middleware.Response{
			Code:    common.HTTPStatus(err),
			Message: "Failed to create queue",
			Error:   err,
		})
		return
	}

	send(middleware.Response{
		Message: "Queue created",
		Data:    queue,
	})
}

// ListQueues handles GET /v1/queues.
func (h *Handler) ListQueues(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	queues, err := h.svc.List(c.Request.Context())
	if err != nil {
		send(middleware.Response{
			Code:    common.HTTPStatus(err),
			Message: "Failed to list queues",
			Error:   err,
		})
		return
	}

	send(middleware.Response{
		Message: "Queues listed",
		Data:    queues,
	})
}
