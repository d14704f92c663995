package taskrunner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shellTask(name, base string, deps []string, cmds ...string) *Task {
	task := &Task{
		Name: name,
		Base: base,
		Env:  map[string]string{},
		Deps: deps,
	}

	for idx, cmd := range cmds {
		task.Cmds = append(task.Cmds, TaskCmdScript{TaskName: name, Content: cmd, Index: idx})
	}

	return task
}

func readLines(t *testing.T, path string) []string {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

func TestRunTaskOrder(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"prepare": shellTask("prepare", base, nil, "echo prepare >> trace.log"),
		"build":   shellTask("build", base, []string{"prepare"}, "echo build >> trace.log"),
	}

	require.NoError(t, RunTask(testContext(), "build", tasks, false))
	assert.Equal(t, []string{"prepare", "build"}, readLines(t, filepath.Join(base, "trace.log")))
}

func TestRunTaskFailFast(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"check": shellTask("check", base, nil,
			"echo check >> trace.log",
			"exit 1",
			"echo never >> trace.log"),
		"build": shellTask("build", base, []string{"check"}, "echo build >> trace.log"),
	}

	err := RunTask(testContext(), "build", tasks, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "due to its dependency check")
	assert.Equal(t, []string{"check"}, readLines(t, filepath.Join(base, "trace.log")))
}

func TestRunTaskEnv(t *testing.T) {
	base := t.TempDir()
	task := shellTask("year", base, nil, "echo $TREND_YEAR > year.log")
	task.Env["TREND_YEAR"] = "2021"
	tasks := TaskList{"year": task}

	require.NoError(t, RunTask(testContext(), "year", tasks, false))
	assert.Equal(t, []string{"2021"}, readLines(t, filepath.Join(base, "year.log")))
}

func TestRunTaskShellStatePersists(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"greet": shellTask("greet", base, nil,
			"GREETING=hi",
			"echo $GREETING > state.log"),
	}

	require.NoError(t, RunTask(testContext(), "greet", tasks, false))
	assert.Equal(t, []string{"hi"}, readLines(t, filepath.Join(base, "state.log")))
}

func TestRunTaskExitStopsRemainingCommands(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"early": shellTask("early", base, nil,
			"echo first >> trace.log",
			"exit 0",
			"echo second >> trace.log"),
	}

	require.NoError(t, RunTask(testContext(), "early", tasks, false))
	assert.Equal(t, []string{"first"}, readLines(t, filepath.Join(base, "trace.log")))
}

func TestRunTaskDryRun(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"write": shellTask("write", base, nil, "echo hello > dry.log"),
	}

	buf := bytes.Buffer{}
	logger := zerolog.New(&buf)
	ctx := WithLogger(context.Background(), &logger)

	require.NoError(t, RunTask(ctx, "write", tasks, true))

	_, err := os.Stat(filepath.Join(base, "dry.log"))
	assert.True(t, os.IsNotExist(err), "dry run must not execute commands")
	assert.Contains(t, buf.String(), "echo hello")
}

func TestRunTaskRefCommand(t *testing.T) {
	base := t.TempDir()
	helper := shellTask("auto#helper", base, nil, "echo helper >> trace.log")
	helper.Hidden = true

	outer := shellTask("outer", base, nil, "echo outer >> trace.log")
	outer.Cmds = append([]TaskCmd{TaskCmdTaskRef{Task: helper}}, outer.Cmds...)
	tasks := TaskList{"outer": outer}

	require.NoError(t, RunTask(testContext(), "outer", tasks, false))
	assert.Equal(t, []string{"helper", "outer"}, readLines(t, filepath.Join(base, "trace.log")))
}

func TestRunTaskUnknownTask(t *testing.T) {
	err := RunTask(testContext(), "ghost", TaskList{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Task ghost not found")
}

func TestRunTaskUnknownDependency(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"build": shellTask("build", base, []string{"ghost"}, "echo build"),
	}

	err := RunTask(testContext(), "build", tasks, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Task ghost not found")
}

func TestRunTaskContextCanceled(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"write": shellTask("write", base, nil, "echo hello > out.log"),
	}

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	err := RunTask(ctx, "write", tasks, false)
	require.ErrorIs(t, err, context.Canceled)
}
