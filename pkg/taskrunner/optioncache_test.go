package taskrunner

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionCacheRoundtrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), CacheFilename)

	options := map[string]string{"year": "2021", "analytics": "out"}
	list := TaskList{
		"build": {
			Name: "build",
			Desc: "Build the analytics artifacts",
			Base: ".",
			Deps: []string{"precommit"},
			Env:  map[string]string{"CGO_ENABLED": "0"},
			Cmds: []TaskCmd{
				TaskCmdScript{TaskName: "build", Content: "echo build", Index: 0},
			},
		},
	}

	require.NoError(t, WriteCache(file, options, list))

	gotOptions, gotList, err := ReadCache(file)
	require.NoError(t, err)
	assert.Equal(t, options, gotOptions)
	require.Contains(t, gotList, "build")
	assert.Equal(t, list["build"].Deps, gotList["build"].Deps)
	assert.Equal(t, list["build"].Env, gotList["build"].Env)
	assert.Equal(t, list["build"].Cmds, gotList["build"].Cmds)
}

func TestOptionCacheMissingFile(t *testing.T) {
	_, _, err := ReadCache(filepath.Join(t.TempDir(), "nope.gob"))
	require.Error(t, err)
}
