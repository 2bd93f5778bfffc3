package logging

import (
	"fmt"
	"sort"
	"strings"
)

// Sink adapts a category logger to the engine's structured event interface
// (Event(name, fields)). Fields are rendered as sorted key=value pairs so
// log lines are stable and greppable.
type Sink struct {
	category Category
}

// NewSink returns a structured event sink writing to the given category.
func NewSink(category Category) *Sink {
	return &Sink{category: category}
}

// Event logs a structured event.
func (s *Sink) Event(event string, fields map[string]any) {
	if len(fields) == 0 {
		Get(s.category).Info("%s", event)
		return
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteByte(' ')
		fmt.Fprintf(&b, "%s=%v", k, fields[k])
	}
	Get(s.category).Info("%s%s", event, b.String())
}
