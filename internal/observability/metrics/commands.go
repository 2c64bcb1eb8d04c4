package metrics

import (
	"time"

	obserrors "github.com/target/idflow/internal/observability/errors"
	"github.com/target/idflow/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// CommandMetric captures the outcome of one session command for metric emission.
type CommandMetric struct {
	Command  string
	Duration time.Duration
	Err      error
}

// EmitCommand emits standardised command metrics.
func EmitCommand(sink statsd.Sink, in CommandMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"command": in.Command,
		"result":  ResultSuccess,
	}
	if in.Err != nil {
		tags["result"] = ResultError
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("command.completed", 1, tags)

	if in.Duration > 0 {
		sink.Timing("command.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
