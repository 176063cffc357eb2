package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/minicrm/backend/internal/middleware"
	"github.com/minicrm/backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// errorBody is the error envelope returned by every endpoint
type errorBody struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func abortWithError(c *gin.Context, code int, message string, details ...string) {
	c.AbortWithStatusJSON(code, errorBody{Status: "error", Message: message, Errors: details})
}

// respondError maps a service error onto a status code and envelope
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		abortWithError(c, http.StatusBadRequest, "Validation Error", verr.Errors...)
	case errors.Is(err, services.ErrNotFound):
		abortWithError(c, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, services.ErrDuplicate):
		abortWithError(c, http.StatusBadRequest, "Duplicate Error", "A record with this value already exists")
	case errors.Is(err, services.ErrCampaignLocked):
		abortWithError(c, http.StatusConflict, services.ErrCampaignLocked.Error())
	case errors.Is(err, services.ErrCampaignAlreadySent),
		errors.Is(err, services.ErrEmptyAudience),
		errors.Is(err, services.ErrCampaignImmutable):
		abortWithError(c, http.StatusBadRequest, rootMessage(err))
	default:
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			middleware.RequestIDField(c),
			zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// respondBindError renders a request binding failure as a validation error
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		abortWithError(c, http.StatusBadRequest, "Validation Error", err.Error())
		return
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, describeField(fe))
	}
	abortWithError(c, http.StatusBadRequest, "Validation Error", details...)
}

func describeField(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// notFoundMessage turns "campaign <id>: document not found" into "Campaign not found"
func notFoundMessage(err error) string {
	msg := err.Error()
	if i := strings.IndexAny(msg, " :"); i > 0 {
		entity := msg[:i]
		switch entity {
		case "customer", "order", "segment", "campaign", "message":
			return strings.ToUpper(entity[:1]) + entity[1:] + " not found"
		}
	}
	return "Resource not found"
}

// rootMessage returns the text of the sentinel at the bottom of err's chain
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func parseObjectID(c *gin.Context, param, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+label+" ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

// currentUser returns the authenticated user's id set by the auth middleware
func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString(middleware.CtxUserID))
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "User not authenticated")
		return primitive.NilObjectID, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	return page, limit
}
