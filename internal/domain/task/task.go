package task

import (
	"encoding/json"
	"fmt"
)

// Task is a finished record published to the stream named after TaskType.
type Task interface {
	TaskType() string
	// TaskKey identifies the record within its type; consumers upsert on it.
	TaskKey() string
	TaskValue() ([]byte, error)
}

func encode(t Task) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", t.TaskType(), t.TaskKey(), err)
	}
	return data, nil
}

// Decode reads a task_data payload back into a *T.
func Decode[T any, PT interface {
	*T
	Task
}](data []byte) (PT, error) {
	var t T
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}
