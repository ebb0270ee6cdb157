package user

import (
	"github.com/go-playground/validator/v10"

	"github.com/volunhub/volunhub/core"
)

var (
	userRoleTag  = "userrole"
	userRoleText = "invalid role"
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(userRoleTag, userRoleValidation)
	core.RegisterCustomTranslation(userRoleTag, userRoleText)
}

// Custom Validators

// userRoleValidation checks that the provided role is a known one.
func userRoleValidation(fl validator.FieldLevel) bool {
	return IsValidRole(fl.Field().String())
}
