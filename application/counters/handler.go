package counters

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"qdispatch/common"
	"qdispatch/middleware"
)

// Handler handles HTTP requests for counter administration.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{svc: service}
}

// RegisterRoutes registers the handler routes.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	counters := api.Group("/v1/counters")
	{
		counters.POST("", h.CreateCounter)
		counters.GET("", h.ListCounters)
	}
}

// CreateCounterPayload is the request body for POST /v1/counters.
type CreateCounterPayload struct {
	Name    string `json:"name" binding:"required"`
	QueueID uint   `json:"queue_id" binding:"required"`
}

// CreateCounter handles POST /v1/counters.
func (h *Handler) CreateCounter(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var payload CreateCounterPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		send(middleware.Response{
			Code:    http.StatusBadRequest,
			Message: "Counter name and queue_id are required",
			Error:   err,
		})
		return
	}

	counter, err := h.svc.Create(c.Request.Context(), payload.QueueID, payload.Name)
	if err != nil {
		send(middleware.Response{
			Code:    common.HTTPStatus(err),
			Message: "Failed to create counter",
			Error:   err,
		})
		return
	}

	send(middleware.Response{
		Message: "Counter created",
		Data:    counter,
	})
}

// ListCounters handles GET /v1/counters. An optional queue_id query
// parameter restricts the listing to one queue.
func (h *Handler) ListCounters(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var queueID uint
	if raw := c.Query("queue_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			send(middleware.Response{
				Code:    http.StatusBadRequest,
				Message: "queue_id must be a positive integer",
				Error:   err,
			})
			return
		}
		queueID = uint(parsed)
	}

	counters, err := h.svc.List(c.Request.Context(), queueID)
	if err != nil {
		send(middleware.Response{
			Code:    common.HTTPStatus(err),
			Message: "Failed to list counters",
			Error:   err,
		})
		return
	}

	send(middleware.Response{
		Message: "Counters listed",
		Data:    counters,
	})
}
