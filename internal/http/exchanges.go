package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/services"
)

type ExchangesController struct {
	exchanges *services.ExchangeService
}

func NewExchangesController(exchanges *services.ExchangeService) *ExchangesController {
	return &ExchangesController{exchanges: exchanges}
}

// ExchangeView is an exchange as seen by one participant.
type ExchangeView struct {
	entities.Exchange
	Role           string                    `json:"role"` // "requester" or "provider"
	AllowedActions []entities.ExchangeStatus `json:"allowed_actions"`
}

func newExchangeView(e *entities.Exchange, userID string) ExchangeView {
	role := "requester"
	if e.ProviderID == userID {
		role = "provider"
	}
	actions := services.AllowedActions(e, userID)
	if actions == nil {
		actions = []entities.ExchangeStatus{}
	}
	return ExchangeView{Exchange: *e, Role: role, AllowedActions: actions}
}

type createExchangeRequest struct {
	BookID string `json:"book_id"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// GetExchanges handles GET /api/exchanges
func (ec *ExchangesController) GetExchanges(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	exchanges, err := ec.exchanges.ForUser(c.Request.Context(), user)
	if err != nil {
		respondServiceError(c, err, "exchange", "list exchanges")
		return
	}

	views := make([]ExchangeView, 0, len(exchanges))
	for i := range exchanges {
		views = append(views, newExchangeView(&exchanges[i], user.ID))
	}
	c.JSON(http.StatusOK, gin.H{"exchanges": views, "count": len(views)})
}

// CreateExchange handles POST /api/exchanges
func (ec *ExchangesController) CreateExchange(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	e, err := ec.exchanges.Request(c.Request.Context(), user, req.BookID)
	if err != nil {
		respondServiceError(c, err, "book", "request book")
		return
	}
	respondCreated(c, newExchangeView(e, user.ID))
}

// UpdateStatus handles PUT /api/exchanges/:id/status
func (ec *ExchangesController) UpdateStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	status, err := entities.ParseExchangeStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Code:    "invalid_input",
			Details: gin.H{"field": "status", "allowed": entities.ExchangeStatuses},
		})
		return
	}

	e, err := ec.exchanges.UpdateStatus(c.Request.Context(), user, c.Param("id"), status)
	if err != nil {
		respondServiceError(c, err, "exchange", "update exchange status")
		return
	}
	c.JSON(http.StatusOK, newExchangeView(e, user.ID))
}
