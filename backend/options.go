package backend

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// validate is the singleton validator instance shared by adapter factories.
var validate = validator.New()

// DecodeOptions decodes the backend-specific fields of a mount configuration
// record into a typed options struct (mapstructure tags) and validates it
// (validate tags). Adapter factories and Validate hooks call it so every
// protocol gets the same schema behavior.
func DecodeOptions(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("field %q failed %q validation", e.Field(), e.Tag())
		}
		return err
	}
	return nil
}
