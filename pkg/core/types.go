package core

// Descriptor is the serialized form of a function call. Func is a registry
// key resolved by the job process; arguments are encoded one by one with
// the codec named by Codec.
type Descriptor struct {
	Func   string            `json:"func" msgpack:"func"`
	Codec  string            `json:"codec" msgpack:"codec"`
	Args   [][]byte          `json:"args" msgpack:"args"`
	Kwargs map[string][]byte `json:"kwargs,omitempty" msgpack:"kwargs,omitempty"`
}

// Submission describes a job accepted by the scheduler.
//
// OutputPath is known at submission time but the file only appears once the
// job finishes. Nothing in this module waits for that to happen.
type Submission struct {
	JobID      string
	JobName    string
	InputPath  string
	OutputPath string
	ScriptPath string
}
