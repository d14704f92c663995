package taskrunner

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	logger := zerolog.Nop()
	return WithLogger(context.Background(), &logger)
}

func writeScript(t *testing.T, content string) (string, string) {
	t.Helper()

	root := t.TempDir()
	path := filepath.Join(root, "tasks.star")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path, root
}

func scriptCmd(t *testing.T, task *Task, idx int) string {
	t.Helper()

	require.Greater(t, len(task.Cmds), idx)
	cmd, ok := task.Cmds[idx].(TaskCmdScript)
	require.True(t, ok, "command %d is not a script command", idx)

	return cmd.Content
}

func TestRunScriptCollectsTasks(t *testing.T) {
	path, root := writeScript(t, `
greeting = option("greeting", default = "hello", help = "Greeting used by the demo tasks")

def configure():
    task(
        "hello",
        desc = "Say hello",
        cmds = ["echo {}".format(greeting)],
    )

    task(
        "shout",
        desc = "Say hello loudly",
        deps = ["hello"],
        cmds = [("echo", greeting)],
    )
`)

	tasks, options, err := RunScript(testContext(), path, root, nil, true)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	require.Contains(t, options, "greeting")
	assert.Equal(t, "hello", options["greeting"].Default())
	assert.Equal(t, "Greeting used by the demo tasks", options["greeting"].Help)

	hello := tasks["hello"]
	require.NotNil(t, hello)
	assert.Equal(t, "Say hello", hello.Desc)
	assert.Equal(t, "echo hello", scriptCmd(t, hello, 0))

	shout := tasks["shout"]
	require.NotNil(t, shout)
	assert.Equal(t, []string{"hello"}, shout.Deps)
	assert.Equal(t, "echo hello", scriptCmd(t, shout, 0))
}

func TestRunScriptOptionOverride(t *testing.T) {
	path, root := writeScript(t, `
greeting = option("greeting", default = "hello")

def configure():
    task("hello", desc = "Say hello", cmds = ["echo {}".format(greeting)])
`)

	tasks, _, err := RunScript(testContext(), path, root, map[string]string{"greeting": "hey"}, true)
	require.NoError(t, err)
	assert.Equal(t, "echo hey", scriptCmd(t, tasks["hello"], 0))
}

func TestRunScriptEnvOverrides(t *testing.T) {
	path, root := writeScript(t, `
def configure():
    setenv("TREND_MARKER", "set-by-configure")

    task("plain", desc = "no env", cmds = [])
    task("custom", desc = "own env", env = {"TREND_MARKER": "task-local"}, cmds = [])
`)

	tasks, _, err := RunScript(testContext(), path, root, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "set-by-configure", tasks["plain"].Env["TREND_MARKER"])
	assert.Equal(t, "task-local", tasks["custom"].Env["TREND_MARKER"])
}

func TestRunScriptYearFromEnv(t *testing.T) {
	path, root := writeScript(t, `
def configure():
    year = getenv("TREND_TEST_YEAR") or current_year()
    task("build", desc = "build", cmds = ["echo --year {}".format(year)])
`)

	t.Setenv("TREND_TEST_YEAR", "2021")
	tasks, _, err := RunScript(testContext(), path, root, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "echo --year 2021", scriptCmd(t, tasks["build"], 0))

	t.Setenv("TREND_TEST_YEAR", "")
	tasks, _, err = RunScript(testContext(), path, root, nil, true)
	require.NoError(t, err)
	expected := "echo --year " + strconv.Itoa(time.Now().Year())
	assert.Equal(t, expected, scriptCmd(t, tasks["build"], 0))
}

func TestRunScriptReservedTaskName(t *testing.T) {
	path, root := writeScript(t, `
def configure():
    task("configure", desc = "nope", cmds = [])
`)

	_, _, err := RunScript(testContext(), path, root, nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestRunScriptOptionOnlyDuringInit(t *testing.T) {
	path, root := writeScript(t, `
def configure():
    option("late", default = "no")
`)

	_, _, err := RunScript(testContext(), path, root, nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init phase")
}

func TestRunScriptPrependPath(t *testing.T) {
	path, root := writeScript(t, `
def configure():
    prepend_path("//.tools")
    task("noop", desc = "noop", cmds = [])
`)

	tasks, _, err := RunScript(testContext(), path, root, nil, true)
	require.NoError(t, err)

	toolsDir := filepath.Join(root, ".tools")
	taskPath := tasks["noop"].Env["PATH"]
	assert.True(t, strings.HasPrefix(taskPath, toolsDir+string(os.PathListSeparator)),
		"PATH %q should start with %q", taskPath, toolsDir)
}

func TestRunScriptResolvePathEnvValue(t *testing.T) {
	path, root := writeScript(t, `
def configure():
    task(
        "noop",
        desc = "noop",
        env = {"TREND_CONFIG": resolve_path("//configs", "app.toml")},
        cmds = [],
    )
`)

	tasks, _, err := RunScript(testContext(), path, root, nil, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "configs", "app.toml"), tasks["noop"].Env["TREND_CONFIG"])
}

func TestRunScriptExecuteBuiltin(t *testing.T) {
	path, root := writeScript(t, `
def configure():
    out = execute("echo ping")
    if out.strip() != "ping":
        error("unexpected output: " + out)

    task("noop", desc = "noop", cmds = [])
`)

	tasks, _, err := RunScript(testContext(), path, root, nil, true)
	require.NoError(t, err)
	require.Contains(t, tasks, "noop")
}

func TestRunScriptReadYaml(t *testing.T) {
	path, root := writeScript(t, `
channel = read_yaml("meta.yml", "release.channel", "stable")
missing = read_yaml("meta.yml", "release.codename", "unnamed")

def configure():
    task("noop", desc = channel + " " + missing, cmds = [])
`)

	meta := filepath.Join(root, "meta.yml")
	require.NoError(t, os.WriteFile(meta, []byte("release:\n  channel: nightly\n"), 0o600))

	tasks, _, err := RunScript(testContext(), path, root, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "nightly unnamed", tasks["noop"].Desc)
}

func TestRunScriptHiddenTaskRef(t *testing.T) {
	path, root := writeScript(t, `
def configure():
    helper = task(desc = "hidden helper", cmds = ["echo inner"])
    task("outer", desc = "outer", cmds = [helper, "echo outer"])
`)

	tasks, _, err := RunScript(testContext(), path, root, nil, true)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	outer := tasks["outer"]
	require.Len(t, outer.Cmds, 2)

	ref, ok := outer.Cmds[0].(TaskCmdTaskRef)
	require.True(t, ok)
	assert.True(t, ref.Task.Hidden)
	assert.True(t, strings.HasPrefix(ref.Task.Name, "auto#"))
}

func TestRunScriptMissingConfigure(t *testing.T) {
	path, root := writeScript(t, `x = 1`)

	_, _, err := RunScript(testContext(), path, root, nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configure")
}

func TestRunScriptErrorBuiltin(t *testing.T) {
	path, root := writeScript(t, `
def configure():
    error("boom")
`)

	_, _, err := RunScript(testContext(), path, root, nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
