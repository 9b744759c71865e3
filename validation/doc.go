// Package validation validates configuration structs and request input.
//
// Struct tag validation uses go-playground/validator and reports field names
// by their mapstructure (config) or json (request) tag:
//
//	type Config struct {
//	    MaxWorkers int `mapstructure:"max_workers" validate:"gte=1"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation collects errors for values that have no struct:
//
//	v := validation.New()
//	v.Positive("appid", appID)
//	err := v.Validate()
package validation
