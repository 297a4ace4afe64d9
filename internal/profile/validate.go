package profile

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	profileNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	fieldTypePattern   = regexp.MustCompile(`^(uint8|uint16|uint32|uint64|pointer|char\[[0-9]+\])$`)
	hexPattern         = regexp.MustCompile(`^([0-9a-fA-F]{2})+$`)
)

// validatorInstance configures and returns the shared validator used for
// profile definition files.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("profile_name", func(fl validator.FieldLevel) bool {
			return profileNamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("field_type", func(fl validator.FieldLevel) bool {
			return fieldTypePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("hex_bytes", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" {
				return true
			}
			return hexPattern.MatchString(s)
		})

		validateInst = v
	})

	return validateInst
}
