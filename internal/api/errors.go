package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// bindJSON decodes and validates the body into dst. On failure it writes
// the error response and returns false.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return false
	}
	if details := validationDetails(err); details != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "details": details})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
	return false
}

// validationDetails flattens validator errors, including the per-element
// errors gin returns for slice bodies. Other errors yield nil.
func validationDetails(err error) []string {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		details := make([]string, 0, len(fields))
		for _, fe := range fields {
			details = append(details, describe(fe))
		}
		return details
	}

	var elems binding.SliceValidationError
	if errors.As(err, &elems) {
		var details []string
		for _, e := range elems {
			details = append(details, validationDetails(e)...)
		}
		return details
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "uuid":
		return fe.Field() + " must be a uuid"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// internalError logs err and hides it from the client.
func (h *Handler) internalError(c *gin.Context, op string, err error) {
	h.log.Error(op+" failed", "user_id", currentUser(c), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// limitParam reads ?limit= with a default. Values outside 1..upper are a 422.
func limitParam(c *gin.Context, def, upper int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > upper {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation_failed",
			"details": []string{fmt.Sprintf("limit must be between 1 and %d", upper)},
		})
		return 0, false
	}
	return n, true
}
