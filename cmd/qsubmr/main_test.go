package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/qsubmr/examples/squares"
	"github.com/nemanja-m/qsubmr/pkg/artifact"
	"github.com/nemanja-m/qsubmr/pkg/codec"
	"github.com/nemanja-m/qsubmr/pkg/jobs"
	"github.com/nemanja-m/qsubmr/pkg/launcher"
	"github.com/nemanja-m/qsubmr/pkg/qsub"
)

// The test binary doubles as the job executable: launcher scripts written
// during these tests exec it with the run subcommand.
func TestMain(m *testing.M) {
	launcher.Handle(jobs.Default)
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func localFlags(t *testing.T) []string {
	t.Helper()
	root := t.TempDir()
	return []string{
		"--scheduler", "local",
		"--artifact-dir", filepath.Join(root, "pickles"),
		"--messages-dir", filepath.Join(root, "messages"),
		"--script-dir", root,
	}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "no command", args: nil, want: 2},
		{name: "unknown command", args: []string{"bogus"}, want: 2},
		{name: "help", args: []string{"--help"}, want: 0},
		{name: "command help", args: []string{"submit", "--help"}, want: 0},
		{name: "missing func", args: []string{"submit"}, want: 2},
		{name: "unknown flag", args: []string{"funcs", "--nope"}, want: 2},
		{name: "missing reducer", args: []string{"mapreduce", "--mapper", squares.Mapper}, want: 2},
		{name: "bad JSON argument", args: []string{"submit", "--func", squares.Mapper, "--arg", "{"}, want: 2},
		{name: "bad kwarg", args: []string{"submit", "--func", squares.Mapper, "--kwarg", "novalue"}, want: 2},
		{name: "wait without local scheduler", args: []string{"demo", "--scheduler", "pbs", "--wait"}, want: 2},
		{name: "missing result path", args: []string{"result"}, want: 2},
		{name: "run without paths", args: []string{"run"}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := execute(t, tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestFuncs(t *testing.T) {
	code, stdout, _ := execute(t, "funcs")
	require.Equal(t, 0, code)
	for _, name := range []string{qsub.ReduceFunc, squares.Mapper, squares.Reducer, "wordcount.count", "grep.match"} {
		assert.Contains(t, stdout, name+"\n")
	}
}

func TestResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_20240101_000000_x.msgpack")
	require.NoError(t, artifact.NewStore(filepath.Dir(path), codec.Msgpack{}).WriteResult(path, map[string]int{"a": 1}))

	code, stdout, _ := execute(t, "result", "--path", path)
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"a": 1}`, stdout)
}

func TestDemo_Local(t *testing.T) {
	code, stdout, stderr := execute(t, append([]string{"demo", "--wait"}, localFlags(t)...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "mapper\t")
	assert.Contains(t, stdout, "reducer\t")
	assert.Contains(t, stdout, "3.25\n")
}

func TestSubmit_Local(t *testing.T) {
	args := append([]string{"submit", "--wait", "--codec", "msgpack", "--func", squares.Mapper, "--arg", "2"}, localFlags(t)...)
	code, stdout, stderr := execute(t, args...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "job\tjob_")
	assert.Contains(t, stdout, "12.25\n")
}

func TestSubmit_LocalJobFailure(t *testing.T) {
	args := append([]string{"submit", "--wait", "--func", squares.Mapper, "--arg", `"not a number"`}, localFlags(t)...)
	code, _, stderr := execute(t, args...)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "FAILED")
}

func TestMapReduce_WordcountLocal(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("the cat sat\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "more"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "more", "b.txt"), []byte("The end. The cat!\n"), 0o644))

	args := append([]string{
		"mapreduce", "--wait",
		"--mapper", "wordcount.count",
		"--reducer", "wordcount.merge",
		"--inputs-glob", filepath.Join(docs, "**", "*.txt"),
	}, localFlags(t)...)
	code, stdout, stderr := execute(t, args...)
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, `"the": 3`)
	assert.Contains(t, stdout, `"cat": 2`)
	assert.Contains(t, stdout, `"end": 1`)
}

func TestMapReduce_GrepWithMapperArg(t *testing.T) {
	docs := t.TempDir()
	doc := filepath.Join(docs, "kafka.txt")
	require.NoError(t, os.WriteFile(doc, []byte("One morning\nGregor Samsa woke\n"), 0o644))

	args := append([]string{
		"mapreduce", "--wait",
		"--mapper", "grep.match",
		"--reducer", "grep.collect",
		"--inputs-glob", doc,
		"--mapper-arg", `"Gregor"`,
	}, localFlags(t)...)
	code, stdout, stderr := execute(t, args...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, doc+":2:Gregor Samsa woke")
}

func TestParseKwargs(t *testing.T) {
	got, err := parseKwargs([]string{"scale=10", `label="x=y"`})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"scale": 10.0, "label": "x=y"}, got)

	got, err = parseKwargs(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
