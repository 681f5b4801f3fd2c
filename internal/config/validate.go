package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidMapSource is returned for an unknown or incomplete map source.
// It is fatal at startup.
var ErrInvalidMapSource = errors.New("invalid map source")

// ErrInvalid wraps every other validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate = validator.New()

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := c.MapMode(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMapSource, err)
	}
	if _, err := c.RequiredCategories(); err != nil {
		return fmt.Errorf("%w: map.required: %v", ErrInvalidMapSource, err)
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		msgs := make([]string, 0, len(verrs))
		mapSource := false
		for _, e := range verrs {
			if strings.HasPrefix(e.Namespace(), "Config.Map.") {
				mapSource = true
			}
			msgs = append(msgs, formatFieldError(e))
		}
		kind := ErrInvalid
		if mapSource {
			kind = ErrInvalidMapSource
		}
		return fmt.Errorf("%w:\n  - %s", kind, strings.Join(msgs, "\n  - "))
	}
	return nil
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(e.Namespace(), "Config."))
	switch e.Tag() {
	case "required", "required_unless":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", field, e.Param(), e.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got: %v)", field, e.Param(), e.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, e.Param(), e.Value())
	}
	return fmt.Sprintf("%s failed %s validation (got: %v)", field, e.Tag(), e.Value())
}
