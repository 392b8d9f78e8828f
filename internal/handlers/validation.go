package handlers

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

var registerOnce sync.Once

// RegisterValidators adds the enum tags used in request structs to gin's
// validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		enums := map[string]func(string) bool{
			"discrepancy_type":   func(s string) bool { return models.DiscrepancyType(s).Valid() },
			"discrepancy_status": func(s string) bool { return models.DiscrepancyStatus(s).Valid() },
			"priority":           func(s string) bool { return models.Priority(s).Valid() },
			"risk_tier":          func(s string) bool { return models.RiskTier(s).Valid() },
			"task_status":        func(s string) bool { return models.TaskStatus(s).Valid() },
			"role":               func(s string) bool { return models.Role(s).Valid() },
			"import_mode":        func(s string) bool { return models.ImportMode(s).Valid() },
		}
		for tag, valid := range enums {
			valid := valid
			_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return valid(fl.Field().String())
			})
		}
	})
}

// bindJSON decodes the body. Malformed JSON is a 400, never a 500.
func bindJSON(c *gin.Context, obj interface{}) bool {
	return checkBind(c, c.ShouldBindJSON(obj))
}

func bindQuery(c *gin.Context, obj interface{}) bool {
	return checkBind(c, c.ShouldBindQuery(obj))
}

func checkBind(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fail(c, verrs)
		return false
	}
	fail(c, apperror.BadRequest("INVALID_REQUEST", err.Error()))
	return false
}

// bindOptionalJSON is bindJSON for endpoints where an empty body means defaults.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, obj)
}

func validationRequired(field string) error {
	return apperror.Validation("Validation failed", map[string]string{field: "required"})
}
