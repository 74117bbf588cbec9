// internal/form/bind.go
//
// Decode binds form values onto a typed struct.  Struct fields use the
// `form:"name"` tag; untagged fields match case-insensitively by name.
// Weak typing is on so "true" or "1" from a prompt lands in a bool field.

package form

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Decode copies values into out, which must be a pointer to a struct.
func Decode(values Values, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("form: decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(values)); err != nil {
		return fmt.Errorf("form: decode: %w", err)
	}
	return nil
}
