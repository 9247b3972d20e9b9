package launcher

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/qsubmr/pkg/artifact"
	"github.com/nemanja-m/qsubmr/pkg/codec"
	"github.com/nemanja-m/qsubmr/pkg/core"
	"github.com/nemanja-m/qsubmr/pkg/jobs"
)

func testRegistry(t *testing.T) *jobs.Registry {
	t.Helper()
	r := jobs.NewRegistry()
	r.MustRegister("partial", jobs.Pure(func(i float64) float64 { return (i + 1.5) * (i + 1.5) }))
	r.MustRegister("fail", jobs.Unary(func(_ context.Context, _ float64) (float64, error) {
		return 0, errors.New("boom")
	}))
	r.MustRegister("scaled", func(_ context.Context, call *jobs.Call) (any, error) {
		var x, scale float64
		if err := call.Arg(0, &x); err != nil {
			return nil, err
		}
		scale = 1
		if _, err := call.Kwarg("scale", &scale); err != nil {
			return nil, err
		}
		return x * scale, nil
	})
	return r
}

func writeInput(t *testing.T, c codec.Codec, fn string, args []any, kwargs map[string]any) (string, string) {
	t.Helper()
	store := artifact.NewStore(t.TempDir(), c)
	in, out := store.Paths(core.NewJobName(fn), time.Now())

	d := &core.Descriptor{Func: fn, Codec: c.Name()}
	for _, a := range args {
		b, err := c.Marshal(a)
		require.NoError(t, err)
		d.Args = append(d.Args, b)
	}
	for k, v := range kwargs {
		b, err := c.Marshal(v)
		require.NoError(t, err)
		if d.Kwargs == nil {
			d.Kwargs = make(map[string][]byte)
		}
		d.Kwargs[k] = b
	}
	require.NoError(t, store.WriteDescriptor(in, d))
	return in, out
}

func TestRun_WritesResult(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.Msgpack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			in, out := writeInput(t, c, "partial", []any{2.0}, nil)

			require.NoError(t, Run(context.Background(), testRegistry(t), in, out))

			var got float64
			require.NoError(t, codec.ReadFile(out, &got))
			assert.Equal(t, 12.25, got)

			_, err := os.Stat(in)
			assert.True(t, os.IsNotExist(err), "input artifact must be removed")
		})
	}
}

func TestRun_Kwargs(t *testing.T) {
	in, out := writeInput(t, codec.JSON{}, "scaled", []any{2.0}, map[string]any{"scale": 4.0})

	require.NoError(t, Run(context.Background(), testRegistry(t), in, out))

	var got float64
	require.NoError(t, codec.ReadFile(out, &got))
	assert.Equal(t, 8.0, got)
}

func TestRun_RemovesInputOnFailure(t *testing.T) {
	in, out := writeInput(t, codec.JSON{}, "fail", []any{1.0}, nil)

	err := Run(context.Background(), testRegistry(t), in, out)
	require.ErrorContains(t, err, "boom")

	_, statErr := os.Stat(in)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no output artifact on failure")
}

func TestRun_UnknownFunc(t *testing.T) {
	in, out := writeInput(t, codec.JSON{}, "missing", []any{1.0}, nil)

	err := Run(context.Background(), testRegistry(t), in, out)
	require.ErrorIs(t, err, jobs.ErrFuncNotFound)

	_, statErr := os.Stat(in)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_MissingInput(t *testing.T) {
	err := Run(context.Background(), testRegistry(t), "/nonexistent/input.json", "/nonexistent/output.json")
	require.Error(t, err)
}

func TestMain_ExitCodes(t *testing.T) {
	ctx := context.Background()
	registry := testRegistry(t)

	in, out := writeInput(t, codec.JSON{}, "partial", []any{0.0}, nil)
	var stderr bytes.Buffer
	assert.Equal(t, 0, Main(ctx, registry, []string{"--input", in, "--output", out}, &stderr))
	assert.Contains(t, stderr.String(), "Job completed")

	in, out = writeInput(t, codec.JSON{}, "fail", []any{0.0}, nil)
	stderr.Reset()
	assert.Equal(t, 1, Main(ctx, registry, []string{"--input", in, "--output", out}, &stderr))
	assert.Contains(t, stderr.String(), "boom")

	assert.Equal(t, 2, Main(ctx, registry, []string{"--input", in}, &stderr))
	assert.Equal(t, 2, Main(ctx, registry, []string{"--bogus"}, &stderr))
}
