package tickets

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"qdispatch/common"
	"qdispatch/middleware"
)

// Handler handles HTTP requests for tickets and dispatch.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{svc: service}
}

// RegisterRoutes registers the handler routes.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	tickets := api.Group("/v1/tickets")
	{
		tickets.POST("/join", h.JoinQueue)
		tickets.POST("/next", h.CallNext)
		tickets.POST("/complete", h.Complete)
		tickets.POST("/:id/skip", h.Skip)
		tickets.GET("", h.ListTickets)
		tickets.GET("/stream", h.StreamTickets)
		tickets.GET("/:id/status", h.TicketStatus)
	}
	api.GET("/v1/queues/:id/serving", h.CurrentServing)
}

// JoinPayload is the request body for POST /v1/tickets/join.
type JoinPayload struct {
	QueueID     uint   `json:"queue_id" binding:"required"`
	UserName    string `json:"user_name" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Priority    int    `json:"priority"`
}

// CallNextPayload is the request body for POST /v1/tickets/next.
type CallNextPayload struct {
	QueueID uint `json:"queue_id" binding:"required"`
}

// CompletePayload addresses a completion either by ticket or by queue;
// at least one must be set, and ticket_id wins when both are.
type CompletePayload struct {
	TicketID uint `json:"ticket_id"`
	QueueID  uint `json:"queue_id"`
}

// StatusResponse is the body of GET /v1/tickets/:id/status. Position
// and wait fields are present only while the ticket is WAITING.
type StatusResponse struct {
	Ticket               *common.Ticket `json:"ticket"`
	PeopleAhead          *int           `json:"people_ahead,omitempty"`
	PeopleBehind         *int           `json:"people_behind,omitempty"`
	EstimatedWaitMinutes *int           `json:"estimated_wait_minutes,omitempty"`
}

// JoinQueue handles POST /v1/tickets/join.
func (h *Handler) JoinQueue(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var payload JoinPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		send(middleware.Response{
			Code:    http.StatusBadRequest,
			Message: "queue_id, user_name and phone_number are required",
			Error:   err,
		})
		return
	}

	result, err := h.svc.Join(c.Request.Context(), payload.QueueID, payload.UserName, payload.PhoneNumber, payload.Priority)
	if err != nil {
		send(middleware.Response{
			Code:    common.HTTPStatus(err),
			Message: "Failed to join queue",
			Error:   err,
		})
		return
	}

	send(middleware.Response{
		Message: "Ticket generated",
		Data: gin.H{
			"ticket":                 result.Ticket,
			"estimated_wait_minutes": result.Estimate.EstimatedWaitMinutes,
		},
	})
}

// CallNext handles POST /v1/tickets/next.
func (h *Handler) CallNext(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var payload CallNextPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		send(middleware.Response{
			Code:    http.StatusBadRequest,
			Message: "queue_id is required",
			Error:   err,
		})
		return
	}

	result, err := h.svc.CallNext(c.Request.Context(), payload.QueueID)
	if err != nil {
		send(middleware.Response{
			Code:    common.HTTPStatus(err),
			Message: "Failed to call next ticket",
			Error:   err,
		})
		return
	}

	switch result.Outcome {
	case OutcomeNoWaiting:
		send(middleware.Response{Message: "No waiting tickets"})
	case OutcomeNoFreeCounter:
		send(middleware.Response{Message: "No free counters available"})
	default:
		send(middleware.Response{
			Message: "Next ticket called",
			Data: gin.H{
				"ticket":  result.Ticket,
				"counter": result.Counter,
			},
		})
	}
}

// Skip handles POST /v1/tickets/:id/skip.
func (h *Handler) Skip(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	ticketID, ok := pathID(c, send)
	if !ok {
		return
	}

	ticket, err := h.svc.Skip(c.Request.Context(), ticketID)
	if err != nil {
		send(middleware.Response{
			Code:    common.HTTPStatus(err),
			Message: "Failed to skip ticket",
			Error:   err,
		})
		return
	}

	send(middleware.Response{
		Message: "Ticket skipped",
		Data:    gin.H{"ticket_id": ticket.ID},
	})
}

// Complete handles POST /v1/tickets/complete.
func (h *Handler) Complete(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var payload CompletePayload
	if err := c.ShouldBindJSON(&payload); err != nil || (payload.TicketID == 0 && payload.QueueID == 0) {
		send(middleware.Response{
			Code:    http.StatusBadRequest,
			Message: "ticket_id or queue_id is required",
			Error:   err,
		})
		return
	}

	ticket, err := h.svc.Complete(c.Request.Context(), payload.TicketID, payload.QueueID)
	if err != nil {
		send(middleware.Response{
			Code:    common.HTTPStatus(err),
			Message: "Failed to complete ticket",
			Error:   err,
		})
		return
	}

	send(middleware.Response{
		Message: "Ticket completed",
		Data:    gin.H{"ticket_id": ticket.ID},
	})
}

// TicketStatus handles GET /v1/tickets/:id/status.
func (h *Handler) TicketStatus(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	ticketID, ok := pathID(c, send)
	if !ok {
		return
	}

	result, err := h.svc.Status(c.Request.Context(), ticketID)
	if err != nil {
		send(middleware.Response{
			Code:    common.HTTPStatus(err),
			Message: "Failed to fetch ticket status",
			Error:   err,
		})
		return
	}

	response := StatusResponse{Ticket: result.Ticket}
	if result.Estimate != nil {
		response.PeopleAhead = &result.Estimate.PeopleAhead
		response.PeopleBehind = &result.Estimate.PeopleBehind
		response.EstimatedWaitMinutes = &result.Estimate.EstimatedWaitMinutes
	}

	send(middleware.Response{
		Message: "Ticket status",
		Data:    response,
	})
}

// CurrentServing handles GET /v1/queues/:id/serving.
func (h *Handler) CurrentServing(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	queueID, ok := pathID(c, send)
	if !ok {
		return
	}

	tickets, err := h.svc.CurrentServing(c.Request.Context(), queueID)
	if err != nil {
		send(middleware.Response{
			Code:    common.HTTPStatus(err),
			Message: "Failed to list serving tickets",
			Error:   err,
		})
		return
	}

	send(middleware.Response{
		Message: "Serving tickets",
		Data:    tickets,
	})
}

// ListTickets handles GET /v1/tickets with optional queue_id, status
// and priority query filters.
func (h *Handler) ListTickets(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	filter, err := filterFromQuery(c)
	if err != nil {
		send(middleware.Response{
			Code:    http.StatusBadRequest,
			Message: "Invalid ticket filter",
			Error:   err,
		})
		return
	}

	tickets, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		send(middleware.Response{
			Code:    common.HTTPStatus(err),
			Message: "Failed to list tickets",
			Error:   err,
		})
		return
	}

	send(middleware.Response{
		Message: "Tickets listed",
		Data:    tickets,
	})
}

// StreamTickets handles GET /v1/tickets/stream, the chunked export of
// the filtered ticket listing.
func (h *Handler) StreamTickets(c *gin.Context) {
	sendStream := c.MustGet("sendStream").(func(middleware.StreamResponse))
	send := c.MustGet("send").(func(middleware.Response))

	filter, err := filterFromQuery(c)
	if err != nil {
		send(middleware.Response{
			Code:    http.StatusBadRequest,
			Message: "Invalid ticket filter",
			Error:   err,
		})
		return
	}

	sendStream(h.svc.StreamList(c.Request.Context(), filter))
}

func filterFromQuery(c *gin.Context) (ListFilter, error) {
	var filter ListFilter
	if raw := c.Query("queue_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return filter, err
		}
		filter.QueueID = uint(parsed)
	}
	if raw := c.Query("status"); raw != "" {
		filter.Status = common.TicketStatus(raw)
	}
	if raw := c.Query("priority"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Priority = parsed
	}
	return filter, nil
}

func pathID(c *gin.Context, send func(middleware.Response)) (uint, bool) {
	parsed, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || parsed == 0 {
		send(middleware.Response{
			Code:    http.StatusBadRequest,
			Message: "id must be a positive integer",
			Error:   err,
		})
		return 0, false
	}
	return uint(parsed), true
}
