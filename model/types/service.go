package types

import (
	"context"
	"fmt"

	"github.com/viant/structology/conv"
)

var converter = newConverter()

func newConverter() *conv.Converter {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	return conv.NewConverter(options)
}

// NewTypedHandler adapts a typed function into a Handler. The first call
// argument is converted into *I, so maps decoded from the wire bind onto structs.
func NewTypedHandler[I any, O any](fn func(ctx context.Context, input *I) (O, error)) Handler {
	return func(ctx context.Context, args []interface{}) (interface{}, error) {
		input := new(I)
		if len(args) == 0 || args[0] == nil {
			return fn(ctx, input)
		}
		switch actual := args[0].(type) {
		case *I:
			return fn(ctx, actual)
		case I:
			*input = actual
		default:
			if err := converter.Convert(actual, input); err != nil {
				return nil, fmt.Errorf("invalid input %T: %w", args[0], err)
			}
		}
		return fn(ctx, input)
	}
}
