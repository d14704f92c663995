// Package devops checks the task definitions the repository ships in tasks.star.
package devops

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaytaylor/github-trending-archive-firehose/pkg/taskrunner"
)

func loadTasks(t *testing.T) taskrunner.TaskList {
	t.Helper()

	logger := zerolog.Nop()
	ctx := taskrunner.WithLogger(context.Background(), &logger)

	tasks, _, err := taskrunner.RunScript(ctx, filepath.Join("..", "tasks.star"), "..", nil, true)
	require.NoError(t, err)

	return tasks
}

func cmdContent(t *testing.T, task *taskrunner.Task, idx int) string {
	t.Helper()

	require.Greater(t, len(task.Cmds), idx)
	cmd, ok := task.Cmds[idx].(taskrunner.TaskCmdScript)
	require.True(t, ok)

	return cmd.Content
}

func TestTasksDeclareExpectedSet(t *testing.T) {
	tasks := loadTasks(t)

	for _, name := range []string{"precommit", "build", "test", "dev-legacy", "install-tools"} {
		assert.Contains(t, tasks, name)
	}
}

func TestChainedTasksDependOnPrecommit(t *testing.T) {
	tasks := loadTasks(t)

	for _, name := range []string{"build", "test", "dev-legacy"} {
		assert.Equal(t, []string{"precommit"}, tasks[name].Deps, "task %s", name)
	}
}

func TestPrecommitRunsFormatterThenChecks(t *testing.T) {
	tasks := loadTasks(t)
	precommit := tasks["precommit"]

	require.Len(t, precommit.Cmds, 2)
	assert.Contains(t, cmdContent(t, precommit, 0), "gofumpt -l -w")
	assert.Contains(t, cmdContent(t, precommit, 1), "go vet ./...")
}

func TestBuildInvokesBuilderForBothKinds(t *testing.T) {
	t.Setenv("YEAR", "2021")
	tasks := loadTasks(t)
	build := tasks["build"]

	require.Len(t, build.Cmds, 2)

	first := cmdContent(t, build, 0)
	assert.Contains(t, first, "ghtrend-analytics build")
	assert.Contains(t, first, "--kind repository")
	assert.Contains(t, first, "--year 2021")

	second := cmdContent(t, build, 1)
	assert.Contains(t, second, "ghtrend-analytics build")
	assert.Contains(t, second, "--kind developer")
	assert.Contains(t, second, "--year 2021")

	assert.Equal(t, "0", build.Env["CGO_ENABLED"])
}

func TestBuildDefaultsToCurrentYear(t *testing.T) {
	t.Setenv("YEAR", "")
	tasks := loadTasks(t)

	year := strconv.Itoa(time.Now().Year())
	assert.Contains(t, cmdContent(t, tasks["build"], 0), "--year "+year)
	assert.Contains(t, cmdContent(t, tasks["build"], 1), "--year "+year)
}

func TestTestTaskUsesQuietRunner(t *testing.T) {
	tasks := loadTasks(t)

	cmd := cmdContent(t, tasks["test"], 0)
	assert.Contains(t, cmd, "gotestsum --format dots")
	assert.NotContains(t, cmd, "-v")
}

func TestDevLegacyServerBinding(t *testing.T) {
	tasks := loadTasks(t)
	dev := tasks["dev-legacy"]

	cmd := cmdContent(t, dev, 0)
	assert.Contains(t, cmd, "./legacy/cmd/ghtrend-web")
	assert.Contains(t, cmd, "--analytics ./analytics")
	assert.Contains(t, cmd, "--port 8000")

	tools, err := filepath.Abs(filepath.Join("..", ".tools"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dev.Env["PATH"], tools),
		"dev-legacy PATH %q should start with the workspace tools dir", dev.Env["PATH"])
}

func TestInstallToolsTargetsWorkspaceDir(t *testing.T) {
	tasks := loadTasks(t)

	gobin := tasks["install-tools"].Env["GOBIN"]
	assert.Equal(t, ".tools", filepath.Base(gobin))
	assert.True(t, filepath.IsAbs(gobin))
}

// A dry run over all chained targets exercises the real dependency graph: the
// formatter and checks must be scheduled exactly once and before any builder
// invocation.
func TestDryRunSchedulesPrecommitOnceAndFirst(t *testing.T) {
	t.Setenv("YEAR", "2021")
	tasks := loadTasks(t)

	buf := bytes.Buffer{}
	logger := zerolog.New(zerolog.SyncWriter(&buf))
	ctx := taskrunner.WithLogger(context.Background(), &logger)

	err := taskrunner.RunTasks(ctx, []string{"build", "test"}, tasks, taskrunner.RunOptions{DryRun: true})
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "gofumpt -l -w"), "precommit must run exactly once")

	fmtPos := strings.Index(out, "gofumpt -l -w")
	repoPos := strings.Index(out, "--kind repository")
	devPos := strings.Index(out, "--kind developer")
	testPos := strings.Index(out, "gotestsum")

	require.GreaterOrEqual(t, fmtPos, 0)
	require.GreaterOrEqual(t, repoPos, 0)
	require.GreaterOrEqual(t, devPos, 0)
	require.GreaterOrEqual(t, testPos, 0)

	assert.Less(t, fmtPos, repoPos, "precommit must precede the repository build")
	assert.Less(t, repoPos, devPos, "repository build must precede the developer build")
	assert.Less(t, fmtPos, testPos, "precommit must precede the test runner")
}
