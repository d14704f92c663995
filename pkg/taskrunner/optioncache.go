package taskrunner

import (
	"encoding/gob"
	"os"
)

// CacheFilename is the file the configure command writes next to the task script.
const CacheFilename = ".ghtrend-cache.gob"

func init() {
	gob.Register(TaskList{})
	gob.Register(Task{})
	gob.Register(TaskCmdScript{})
	gob.Register(TaskCmdTaskRef{})
}

// WriteCache persists the configured option values and the resulting task list.
func WriteCache(file string, options map[string]string, list TaskList) error {
	handle, err := os.Create(file)
	if err != nil {
		return err
	}
	defer handle.Close()

	encoder := gob.NewEncoder(handle)
	err = encoder.Encode(options)
	if err != nil {
		return err
	}

	return encoder.Encode(list)
}

// ReadCache reads a cache written by WriteCache.
func ReadCache(file string) (map[string]string, TaskList, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer handle.Close()

	decoder := gob.NewDecoder(handle)

	var options map[string]string
	err = decoder.Decode(&options)
	if err != nil {
		return nil, nil, err
	}

	var result TaskList
	err = decoder.Decode(&result)
	if err != nil {
		return options, nil, err
	}

	return options, result, nil
}
