package metrics

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/target/idflow/internal/domain/auth"
	"github.com/target/idflow/internal/observability/statsd"
	"github.com/target/idflow/internal/ports"
)

// FlowSink turns session events into StatsD metrics.
//
// It counts step transitions, issued artifacts, error log lines and provider
// activations, keeps a gauge of the current step and times each flow from
// Validating to CredentialsExchanged using the event timestamps.
type FlowSink struct {
	sink statsd.Sink

	mu        sync.Mutex
	flowStart time.Time
}

var _ ports.EventSink = (*FlowSink)(nil)

// NewFlowSink wraps a statsd sink. A nil sink yields a FlowSink that drops everything.
func NewFlowSink(sink statsd.Sink) *FlowSink {
	return &FlowSink{sink: sink}
}

func (f *FlowSink) Publish(_ context.Context, ev domainauth.Event) error {
	if f == nil || f.sink == nil {
		return nil
	}

	switch ev.Kind {
	case domainauth.EventStepChanged:
		f.onStep(ev)
	case domainauth.EventLogEmitted:
		if ev.Log != nil && ev.Log.Kind == domainauth.LogError {
			f.sink.Count("flow.error", 1, map[string]string{"step": ev.Step.String()})
		}
	case domainauth.EventTokensChanged:
		if ev.Tokens != nil && !ev.Tokens.IsEmpty() {
			f.sink.Count("tokens.issued", 1, nil)
		}
	case domainauth.EventCredentialsChanged:
		if ev.Credentials != nil {
			f.sink.Count("credentials.issued", 1, nil)
		}
	case domainauth.EventAccessGranted:
		f.sink.Count("access.granted", int64(len(ev.Resources)), nil)
	case domainauth.EventProviderActivated:
		f.sink.Count("federation.provider_activated", 1, map[string]string{"provider": ev.Provider})
	case domainauth.EventLogsCleared:
		f.sink.Count("session.reset", 1, nil)
	}
	return nil
}

func (f *FlowSink) onStep(ev domainauth.Event) {
	step := ev.Step.String()
	f.sink.Count("flow.step_changed", 1, map[string]string{"step": step})
	f.sink.Gauge("flow.step", float64(ev.Step), nil)

	f.mu.Lock()
	defer f.mu.Unlock()

	switch ev.Step {
	case domainauth.StepValidating:
		f.flowStart = ev.At
	case domainauth.StepCredentialsExchanged:
		if !f.flowStart.IsZero() {
			f.sink.Timing("flow.duration", ev.At.Sub(f.flowStart), nil)
		}
		f.flowStart = time.Time{}
	case domainauth.StepIdle:
		f.flowStart = time.Time{}
	}
}
