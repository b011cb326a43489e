package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"storefront/internal/apperr"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondServiceError maps the service error taxonomy onto HTTP.
func respondServiceError(c *gin.Context, route string, err error) {
	var persistErr *apperr.PersistenceError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, apperr.ErrSignatureMismatch):
		respondWithError(c, http.StatusBadRequest, route, "payment verification failed")
	case errors.Is(err, apperr.ErrGatewayUnavailable):
		log.Printf("[%s] gateway error: %v", route, err)
		respondWithError(c, http.StatusBadGateway, route, "payment system unavailable, try again")
	case errors.Is(err, apperr.ErrMisconfigured):
		log.Printf("[%s] configuration error: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "server misconfigured")
	case errors.Is(err, apperr.ErrOrderNotFound):
		respondWithError(c, http.StatusNotFound, route, "order not found")
	case errors.Is(err, apperr.ErrForbidden):
		respondWithError(c, http.StatusForbidden, route, "forbidden")
	case errors.Is(err, apperr.ErrInvalidTransition):
		respondWithError(c, http.StatusConflict, route, err.Error())
	case errors.As(err, &persistErr) && persistErr.PaymentID != "":
		log.Printf("[%s] [ERROR] payment %s captured but not recorded: %v", route, persistErr.PaymentID, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "your payment was received but we could not save your order, please contact support with your payment ID",
			"paymentId": persistErr.PaymentID,
		})
	case errors.Is(err, apperr.ErrPersistence):
		log.Printf("[%s] store error: %v", route, err)
		respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
	default:
		log.Printf("[%s] unexpected error: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "internal server error")
	}
}

func respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		log.Printf("[%s] returning error %d: %s", route, http.StatusBadRequest, strings.Join(details, ", "))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	respondWithError(c, http.StatusBadRequest, route, "invalid request body")
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
