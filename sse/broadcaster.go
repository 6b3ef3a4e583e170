package sse

import (
	"encoding/json"

	"github.com/kbukum/edgecam/task"
)

// Broadcaster publishes events to subscribed clients. Publish must not
// block: it is called from stage loops.
type Broadcaster interface {
	// Publish sends data as an event of the given type to every client
	// whose subscription glob matches topic.
	Publish(topic, event string, data []byte)
}

// Observer returns a task observer publishing each lifecycle event under
// the stage name.
func Observer(b Broadcaster) func(task.Event) {
	return func(ev task.Event) {
		data, err := json.Marshal(FromTask(ev))
		if err != nil {
			return
		}
		b.Publish(ev.Task, eventType(ev.Kind), data)
	}
}
