package codec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: NameJSON},
		{name: "json", want: NameJSON},
		{name: "msgpack", want: NameMsgpack},
		{name: "pickle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Get(tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownCodec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name())
		})
	}
}

func TestForPath(t *testing.T) {
	c, err := ForPath("/tmp/output_20240101_000000_f.msgpack")
	require.NoError(t, err)
	assert.Equal(t, NameMsgpack, c.Name())

	c, err = ForPath("output.json")
	require.NoError(t, err)
	assert.Equal(t, NameJSON, c.Name())

	_, err = ForPath("output.pickle")
	require.ErrorIs(t, err, ErrUnknownCodec)
}

func TestMarshalList(t *testing.T) {
	for _, c := range []Codec{JSON{}, Msgpack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			var items [][]byte
			for _, v := range []float64{2.25, 6.25, 12.25} {
				b, err := c.Marshal(v)
				require.NoError(t, err)
				items = append(items, b)
			}

			data, err := c.MarshalList(items)
			require.NoError(t, err)

			var got []float64
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, []float64{2.25, 6.25, 12.25}, got)
		})
	}
}

func TestMarshalList_Empty(t *testing.T) {
	for _, c := range []Codec{JSON{}, Msgpack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.MarshalList(nil)
			require.NoError(t, err)

			got := []float64{1}
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Empty(t, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_x.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"answer": 3.25}`), 0o644))

	var got map[string]float64
	require.NoError(t, ReadFile(path, &got))
	assert.Equal(t, 3.25, got["answer"])

	bad := filepath.Join(t.TempDir(), "output_y.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o644))
	require.Error(t, ReadFile(bad, &got))
}
