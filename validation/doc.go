// Package validation provides struct tag and programmatic validation that
// reports failures as INVALID_INPUT AppErrors with per-field details.
//
// # Struct Tag Validation
//
//	type InspectConfig struct {
//	    Addr string `mapstructure:"addr" validate:"required,hostname_port"`
//	}
//	err := validation.Validate(cfg)
//
// The custom "ident" tag accepts capability keys and module ids such as
// "settings.screen-factory".
//
// # Programmatic Validation
//
//	if err := validation.New().Identifier("module.name", name).Err(); err != nil {
//	    return err
//	}
package validation
