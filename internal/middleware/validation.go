package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/credchain-api/internal/model"
)

// RegisterValidators installs the domain value validators on gin's
// binding engine so malformed roles and verdicts are rejected at bind
// time. Field names in validation errors use the JSON tag.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	_ = v.RegisterValidation("platform_role", func(fl validator.FieldLevel) bool {
		return model.ValidRole(model.Role(fl.Field().String()))
	})
	_ = v.RegisterValidation("review_verdict", func(fl validator.FieldLevel) bool {
		return model.ValidVerdict(model.Verdict(fl.Field().String()))
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}
