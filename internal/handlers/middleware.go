package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/service"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

const actorKey = "actor"

// ErrorHandler renders the last error recorded on the context. Server errors
// are logged and never leak their cause to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			err = apperror.Validation("Validation failed", validationDetails(verrs))
		}

		appErr := apperror.From(err)
		if appErr.Status >= http.StatusInternalServerError {
			telemetry.Logger.Error("Request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.String("request_id", telemetry.RequestID(c)),
				zap.Error(err),
			)
		}
		c.JSON(appErr.Status, envelope{
			Success: false,
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
	}
}

func validationDetails(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// Authenticate requires a Bearer token and stores the caller on the context.
func Authenticate(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			fail(c, apperror.Unauthorized("Authentication required"))
			return
		}
		actor, err := auth.Authenticate(token)
		if err != nil {
			fail(c, err)
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// Authorize lets only the given roles through. It must run after Authenticate.
func Authorize(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).HasRole(roles...) {
			fail(c, apperror.Forbidden("Insufficient permissions"))
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) models.Actor {
	actor, _ := c.MustGet(actorKey).(models.Actor)
	return actor
}
