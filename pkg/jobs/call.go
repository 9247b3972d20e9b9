package jobs

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/nemanja-m/qsubmr/pkg/codec"
)

// Call carries the encoded arguments of one function invocation. Arguments
// are decoded on demand into whatever type the function asks for.
type Call struct {
	codec  codec.Codec
	args   [][]byte
	kwargs map[string][]byte
}

func NewCall(c codec.Codec, args [][]byte, kwargs map[string][]byte) *Call {
	return &Call{codec: c, args: args, kwargs: kwargs}
}

func (c *Call) Codec() codec.Codec { return c.codec }

func (c *Call) NumArgs() int { return len(c.args) }

// Arg decodes positional argument i into v.
func (c *Call) Arg(i int, v any) error {
	if i < 0 || i >= len(c.args) {
		return fmt.Errorf("jobs: argument %d out of range (have %d)", i, len(c.args))
	}
	if err := c.codec.Unmarshal(c.args[i], v); err != nil {
		return fmt.Errorf("jobs: decode argument %d: %w", i, err)
	}
	return nil
}

// Kwarg decodes the keyword argument name into v. It reports false when the
// argument was not supplied, leaving v untouched.
func (c *Call) Kwarg(name string, v any) (bool, error) {
	data, ok := c.kwargs[name]
	if !ok {
		return false, nil
	}
	if err := c.codec.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("jobs: decode keyword argument %s: %w", name, err)
	}
	return true, nil
}

func (c *Call) KwargNames() []string {
	return slices.Sorted(maps.Keys(c.kwargs))
}

// RawArgs returns the encoded positional arguments starting at from.
func (c *Call) RawArgs(from int) [][]byte {
	if from >= len(c.args) {
		return nil
	}
	return c.args[from:]
}

func (c *Call) RawKwargs() map[string][]byte {
	return c.kwargs
}

// Invoke runs fn with this call's arguments.
func (c *Call) Invoke(ctx context.Context, fn Func) (any, error) {
	return fn(ctx, c)
}
