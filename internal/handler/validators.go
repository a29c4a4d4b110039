package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"solis/internal/permission"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the department and role tags and makes validation
// errors report json field names, or query names for query structs.
func RegisterValidators(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("department", func(fl validator.FieldLevel) bool {
		return permission.ValidDepartment(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return permission.ValidRole(strings.ToLower(fl.Field().String()))
	})
}

// bindError answers 400, naming the first offending field when known.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Field: verrs[0].Field()})
		return
	}
	badRequest(c)
}
