package taskrunner

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTasksSharedDependencyRunsOnce(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"common": shellTask("common", base, nil, "echo common >> common.log"),
		"alpha":  shellTask("alpha", base, []string{"common"}, "echo alpha > alpha.log"),
		"beta":   shellTask("beta", base, []string{"common"}, "echo beta > beta.log"),
	}

	require.NoError(t, RunTasks(testContext(), []string{"alpha", "beta"}, tasks, RunOptions{}))

	assert.Equal(t, []string{"common"}, readLines(t, filepath.Join(base, "common.log")))
	assert.Equal(t, []string{"alpha"}, readLines(t, filepath.Join(base, "alpha.log")))
	assert.Equal(t, []string{"beta"}, readLines(t, filepath.Join(base, "beta.log")))
}

func TestRunTasksConcurrentTargets(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{}
	targets := make([]string, 0, 6)

	for idx := 0; idx < 6; idx++ {
		name := fmt.Sprintf("job%d", idx)
		tasks[name] = shellTask(name, base, nil, fmt.Sprintf("echo done > %s.log", name))
		targets = append(targets, name)
	}

	require.NoError(t, RunTasks(testContext(), targets, tasks, RunOptions{MaxParallel: 10}))

	for _, name := range targets {
		assert.FileExists(t, filepath.Join(base, name+".log"))
	}
}

func TestRunTasksFailedDependencyStopsAllDependents(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"check": shellTask("check", base, nil, "exit 1"),
		"alpha": shellTask("alpha", base, []string{"check"}, "echo alpha > alpha.log"),
		"beta":  shellTask("beta", base, []string{"check"}, "echo beta > beta.log"),
	}

	err := RunTasks(testContext(), []string{"alpha", "beta"}, tasks, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "due to its dependency check")

	assert.NoFileExists(t, filepath.Join(base, "alpha.log"))
	assert.NoFileExists(t, filepath.Join(base, "beta.log"))
}

func TestRunTasksDependencyCycle(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"a": shellTask("a", base, []string{"b"}, "echo a"),
		"b": shellTask("b", base, []string{"a"}, "echo b"),
	}

	err := RunTasks(testContext(), []string{"a"}, tasks, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle")

	// requesting both cycle members concurrently must fail the same way
	// instead of deadlocking
	err = RunTasks(testContext(), []string{"a", "b"}, tasks, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle")
}

func TestRunTasksSelfReference(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"loop": shellTask("loop", base, []string{"loop"}, "echo loop"),
	}

	err := RunTasks(testContext(), []string{"loop"}, tasks, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle")
}

func TestRunTasksDryRunSkipsDependencies(t *testing.T) {
	base := t.TempDir()
	tasks := TaskList{
		"prepare": shellTask("prepare", base, nil, "echo prepare > prepare.log"),
		"build":   shellTask("build", base, []string{"prepare"}, "echo build > build.log"),
	}

	require.NoError(t, RunTasks(testContext(), []string{"build"}, tasks, RunOptions{DryRun: true}))

	_, err := os.Stat(filepath.Join(base, "prepare.log"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, "build.log"))
	assert.True(t, os.IsNotExist(err))
}
