package cli

import (
	"fmt"
	"reflect"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
)

// uuidMapper creates a Kong mapper for uuid.UUID.
func uuidMapper() kong.MapperFunc {
	return func(ctx *kong.DecodeContext, target reflect.Value) error {
		var s string
		if err := ctx.Scan.PopValueInto("uuid", &s); err != nil {
			return err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid run ID %q: %w", s, err)
		}
		target.Set(reflect.ValueOf(id))
		return nil
	}
}
