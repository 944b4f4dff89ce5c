package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kubev2v/vsphere-inspector/internal/vsphere"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("counter_name", counterNameValidator)
	return v
}

func counterNameValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := vsphere.ParseCounterKey(val)
	return err == nil
}

// validateStruct reports the first rule that cfg breaks, naming the field by
// its path in the configuration file.
func validateStruct(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "counter_name":
		return fmt.Errorf("%s: %q is not a counter name, expected group:name:rollup", field, fe.Value())
	default:
		if fe.Param() != "" {
			return fmt.Errorf("%s: invalid value %v, must satisfy %s=%s", field, fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%s: invalid value %v, must be a valid %s", field, fe.Value(), fe.Tag())
	}
}
