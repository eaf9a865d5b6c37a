package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/suminyol/ayursutra-api/internal/model"
	apperrors "github.com/suminyol/ayursutra-api/pkg/errors"
	"github.com/suminyol/ayursutra-api/pkg/httputil"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "userID"
	ContextRole   = "userRole"
)

// Actor extracts the authenticated caller from the gin context.
func Actor(c *gin.Context) model.Actor {
	actor := model.Actor{}
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			actor.UserID = id
		}
	}
	if v, ok := c.Get(ContextRole); ok {
		if role, ok := v.(string); ok {
			actor.Role = model.UserRole(role)
		}
	}
	return actor
}

// BindJSON binds the body and translates validator failures into the
// field-level error envelope.
func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok {
			fields := make([]apperrors.FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, apperrors.FieldError{
					Field:   fe.Field(),
					Message: validationMessage(fe),
				})
			}
			httputil.RespondWithError(c, apperrors.Validation(fields))
			return false
		}
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return false
	}
	return true
}

// ParseID parses a uuid path parameter, responding on failure.
func ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid "+param, err))
		return uuid.Nil, false
	}
	return id, true
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "value is below the minimum of " + fe.Param()
	case "max":
		return "value exceeds the maximum of " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "invalid value"
	}
}
