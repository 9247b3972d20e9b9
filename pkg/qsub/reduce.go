package qsub

import (
	"context"
	"errors"
	"fmt"

	"github.com/nemanja-m/qsubmr/pkg/artifact"
	"github.com/nemanja-m/qsubmr/pkg/jobs"
)

// ReduceFunc is the registry name of the reduce-phase wrapper. Its
// positional arguments are the reducer name, the mapper output paths, a
// flag telling it to delete those outputs, then the reducer's own extra
// arguments.
const ReduceFunc = "qsubmr.reduce"

func init() {
	RegisterBuiltins(jobs.Default)
}

// RegisterBuiltins registers the reduce wrapper into r. Binaries using a
// registry other than jobs.Default must call it before launcher.Handle.
func RegisterBuiltins(r *jobs.Registry) {
	err := r.Register(ReduceFunc, reduceWrapper(r))
	if err != nil && !errors.Is(err, jobs.ErrAlreadyRegistered) {
		panic(err)
	}
}

func reduceWrapper(r *jobs.Registry) jobs.Func {
	return func(ctx context.Context, call *jobs.Call) (any, error) {
		var (
			reducer string
			paths   []string
			remove  bool
		)
		if err := call.Arg(0, &reducer); err != nil {
			return nil, err
		}
		if err := call.Arg(1, &paths); err != nil {
			return nil, err
		}
		if err := call.Arg(2, &remove); err != nil {
			return nil, err
		}
		fn, err := r.Get(reducer)
		if err != nil {
			return nil, err
		}

		items := make([][]byte, 0, len(paths))
		for _, path := range paths {
			data, err := artifact.ReadRaw(path)
			if err != nil {
				return nil, fmt.Errorf("read mapper output: %w", err)
			}
			items = append(items, data)
			if remove {
				if err := artifact.Remove(path); err != nil {
					return nil, fmt.Errorf("remove mapper output: %w", err)
				}
			}
		}

		results, err := call.Codec().MarshalList(items)
		if err != nil {
			return nil, fmt.Errorf("assemble mapper results: %w", err)
		}
		args := append([][]byte{results}, call.RawArgs(3)...)
		return jobs.NewCall(call.Codec(), args, call.RawKwargs()).Invoke(ctx, fn)
	}
}
