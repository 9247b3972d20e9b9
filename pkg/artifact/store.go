// Package artifact reads and writes the files that carry a job's input and
// output between the submitting process and the job process.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nemanja-m/qsubmr/pkg/codec"
	"github.com/nemanja-m/qsubmr/pkg/core"
)

const timestampLayout = "20060102_150405"

type Store struct {
	Dir   string
	Codec codec.Codec
}

func NewStore(dir string, c codec.Codec) *Store {
	return &Store{Dir: dir, Codec: c}
}

// EnsureDir creates each directory if it does not exist yet.
func EnsureDir(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Paths returns the input and output artifact paths of a job.
func (s *Store) Paths(jobName string, now time.Time) (input, output string) {
	stamp := now.Format(timestampLayout)
	input = filepath.Join(s.Dir, "input_"+stamp+"_"+jobName+s.Codec.Ext())
	output = filepath.Join(s.Dir, "output_"+stamp+"_"+jobName+s.Codec.Ext())
	return input, output
}

func (s *Store) WriteDescriptor(path string, d *core.Descriptor) error {
	data, err := s.Codec.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode descriptor for %s: %w", d.Func, err)
	}
	return WriteFile(path, data)
}

// ReadDescriptor decodes a descriptor, picking the codec from the file
// extension.
func ReadDescriptor(path string) (*core.Descriptor, error) {
	var d core.Descriptor
	if err := codec.ReadFile(path, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// WriteResult encodes v and writes it to path.
func (s *Store) WriteResult(path string, v any) error {
	data, err := s.Codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return WriteFile(path, data)
}

// WriteFile writes data to a temporary file next to path and renames it into
// place, so readers never observe a partial artifact.
func WriteFile(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func ReadRaw(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func Remove(path string) error {
	return os.Remove(path)
}
