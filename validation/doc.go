// Package validation validates configuration structs using struct tags and
// go-playground/validator.
//
//	type HostConfig struct {
//	    Name string `mapstructure:"name" validate:"required"`
//	}
//	err := validation.Validate(cfg)
//
// Failures are returned as an *errors.AppError with code INVALID_CONFIG whose
// "fields" detail lists every offending field.
package validation
