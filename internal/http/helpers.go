package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookexchange/internal/auth"
	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/exchange"
	"github.com/mrlokans/bookexchange/internal/services"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: "not_found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
// Use the specific helpers (respondBadRequest, respondNotFound, etc.) when possible.
func respondError(c *gin.Context, status int, message, code string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps storage, lifecycle and service errors to a
// status code. resource names the entity in 404 messages; context is only
// logged.
func respondServiceError(c *gin.Context, err error, resource, context string) {
	var (
		validation *services.ValidationError
		constraint *storage.ConstraintError
		transition *exchange.TransitionError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   validation.Error(),
			Code:    "invalid_input",
			Details: gin.H{"field": validation.Field},
		})
	case errors.Is(err, storage.ErrInvalidID):
		respondError(c, http.StatusBadRequest, "invalid "+resource+" id", "invalid_id")
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, err.Error(), "invalid_credentials")
	case errors.Is(err, services.ErrForbidden):
		respondError(c, http.StatusForbidden, "not allowed", "forbidden")
	case errors.Is(err, storage.ErrNotFound):
		respondNotFound(c, resource)
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   transition.Error(),
			Code:    "invalid_transition",
			Details: gin.H{"from": transition.From, "to": transition.To},
		})
	case errors.As(err, &constraint):
		respondError(c, http.StatusConflict, constraint.Error(), constraintCode(constraint))
	case errors.Is(err, storage.ErrBookUnavailable):
		respondError(c, http.StatusConflict, err.Error(), "book_unavailable")
	case errors.Is(err, services.ErrBookInUse):
		respondError(c, http.StatusConflict, err.Error(), "book_in_use")
	case errors.Is(err, storage.ErrConnection), errors.Is(err, storage.ErrNotConnected):
		log.Printf("Storage unavailable (%s): %v", context, err)
		respondError(c, http.StatusServiceUnavailable, "storage unavailable", "unavailable")
	default:
		respondInternalError(c, err, context)
	}
}

func constraintCode(e *storage.ConstraintError) string {
	switch e.Field {
	case "username":
		return "duplicate_username"
	case "email":
		return "duplicate_email"
	}
	return "constraint_violation"
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// currentUser returns the logged-in user. Routes using it sit behind
// auth.Middleware.RequireUser, so a missing user is a wiring bug.
func currentUser(c *gin.Context) (*entities.User, bool) {
	user := auth.CurrentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "authentication required", "unauthorized")
		return nil, false
	}
	return user, true
}
