// Package validation provides input validation for configuration and API
// payloads.
//
// Struct tag validation runs go-playground/validator and reports fields by
// their yaml (or json) path:
//
//	type Matching struct {
//	    Strategy string `yaml:"strategy" validate:"oneof=segment cluster"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation collects cross-field errors:
//
//	v := validation.New().Custom(lo <= hi, "cluster.lower_threshold", "must not exceed cluster.aggregate_threshold")
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
