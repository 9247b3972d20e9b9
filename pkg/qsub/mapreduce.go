package qsub

import (
	"context"
	"fmt"

	"github.com/nemanja-m/qsubmr/pkg/core"
)

type MapReduceRequest struct {
	// Mapper is called once per input, with the input as its first argument
	// followed by MapperArgs.
	Mapper       string
	MapperArgs   []any
	MapperKwargs map[string]any

	// Reducer is called once with the list of mapper results as its first
	// argument followed by ReducerArgs.
	Reducer       string
	ReducerArgs   []any
	ReducerKwargs map[string]any

	// Inputs yields one mapper job per element. It may be empty, in which
	// case the reducer runs over an empty list.
	Inputs []any

	// KeepIntermediate leaves mapper output artifacts on disk after the
	// reducer has read them.
	KeepIntermediate bool

	Options Options
}

type MapReduceResult struct {
	Mappers []*core.Submission
	Reducer *core.Submission
}

// MapReduce submits one mapper job per input and a reducer job that the
// scheduler starts only after every mapper has succeeded. If a mapper
// submission fails, MapReduce stops: later mappers and the reducer are not
// submitted and jobs already submitted are left alone.
func (c *Client) MapReduce(ctx context.Context, req *MapReduceRequest) (*MapReduceResult, error) {
	if _, err := c.registry.Get(req.Mapper); err != nil {
		return nil, err
	}
	if _, err := c.registry.Get(req.Reducer); err != nil {
		return nil, err
	}

	c.trace(req.Options, "Starting submission of mapper jobs", "mapper", req.Mapper, "inputs", len(req.Inputs))
	result := &MapReduceResult{Mappers: make([]*core.Submission, 0, len(req.Inputs))}
	jobIDs := make([]string, 0, len(req.Inputs))
	outputs := make([]string, 0, len(req.Inputs))
	for i, input := range req.Inputs {
		args := append([]any{input}, req.MapperArgs...)
		sub, err := c.submit(ctx, &job{
			fn:     req.Mapper,
			label:  req.Mapper,
			args:   args,
			kwargs: req.MapperKwargs,
		}, req.Options)
		if err != nil {
			return nil, fmt.Errorf("mapper %d of %d: %w", i+1, len(req.Inputs), err)
		}
		result.Mappers = append(result.Mappers, sub)
		jobIDs = append(jobIDs, sub.JobID)
		outputs = append(outputs, sub.OutputPath)
	}

	c.trace(req.Options, "Starting submission of reducer job", "reducer", req.Reducer, "after", jobIDs)
	args := append([]any{req.Reducer, outputs, !req.KeepIntermediate}, req.ReducerArgs...)
	sub, err := c.submit(ctx, &job{
		fn:     ReduceFunc,
		label:  req.Reducer,
		args:   args,
		kwargs: req.ReducerKwargs,
		after:  jobIDs,
		gated:  true,
	}, req.Options)
	if err != nil {
		return nil, fmt.Errorf("reducer: %w", err)
	}
	result.Reducer = sub
	return result, nil
}
