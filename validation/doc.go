// Package validation provides input validation utilities for resilkit
// configuration.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Struct tag validation is
// used by the config package to check engine settings before primitives are
// built from them.
//
// # Struct Tag Validation
//
//	type BreakerSettings struct {
//	    FailureThreshold int     `validate:"gt=0"`
//	    SLOTarget        float64 `validate:"gt=0,lt=1"`
//	}
//	err := validation.Validate(settings)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Custom(cfg.Timeout > 0, "timeout", "must be positive")
//	err := v.Validate()
package validation
