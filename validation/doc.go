// Package validation checks service configuration before anything starts.
//
// Struct tags (go-playground/validator) cover static rules and report
// fields by their config key path:
//
//	type GeneratorConfig struct {
//	    FPS float64 `mapstructure:"fps" validate:"gte=0,lte=120"`
//	}
//	err := validation.Validate(cfg) // "capture.generator.fps: must be at most 120"
//
// Cross-field rules use the programmatic Validator:
//
//	v := validation.New()
//	v.OneOf("capture.kind", cfg.Kind, []string{"generator", "snapshot"})
//	return v.Validate()
package validation
