package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/target/idflow/config"
	"github.com/target/idflow/internal/clock"
	domainauth "github.com/target/idflow/internal/domain/auth"
	apperrors "github.com/target/idflow/internal/errors"
	"github.com/target/idflow/internal/ports"
	"golang.org/x/sync/semaphore"
)

// JMESPathEvaluator evaluates query expressions over snapshot data.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (jmespathLibEvaluator) Validate(expr string) error {
	_, err := jmespath.Compile(expr)
	return err
}

func (jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Flow       config.FlowConfig
	Federation config.FederationConfig

	Registry  *PrincipalRegistry
	Tokens    *TokenFactory
	Broker    *CredentialBroker
	Provider  ports.FederationProvider // optional; federated sign-in fails without it
	Inspector ports.TokenInspector     // optional; expiry falls back to token timestamps
	Sink      ports.EventSink          // optional
	Clock     clock.Clock              // optional, defaults to clock.Real
	Logger    *slog.Logger             // optional
	JMESPath  JMESPathEvaluator        // optional
}

// sessionState is the process-wide session. It is only touched with mu held.
type sessionState struct {
	step            domainauth.Step
	principalID     string
	tokens          domainauth.TokenSet
	credentials     *domainauth.CredentialSet
	access          map[domainauth.ResourceCategory]bool
	activeProviders []string
	logs            []domainauth.LogEntry
}

func newSessionState() sessionState {
	access := make(map[domainauth.ResourceCategory]bool, len(domainauth.AllResources()))
	for _, r := range domainauth.AllResources() {
		access[r] = false
	}
	return sessionState{access: access}
}

// SessionService is the session state machine. It is the only mutator of the
// session and the only entry point for commands.
//
// Commands are serialized: a command issued while another is in flight fails
// with ErrBusy. Reset is the exception; it aborts the running command and
// returns the session to Idle.
type SessionService struct {
	flow       config.FlowConfig
	federation config.FederationConfig

	registry  *PrincipalRegistry
	tokens    *TokenFactory
	broker    *CredentialBroker
	provider  ports.FederationProvider
	inspector ports.TokenInspector
	sink      ports.EventSink
	clock     clock.Clock
	logger    *slog.Logger
	jmes      JMESPathEvaluator

	guard *semaphore.Weighted

	mu       sync.Mutex
	state    sessionState
	gen      uint64 // bumped by Reset; stale flows compare against it
	resets   int    // Resets waiting for the guard; begin refuses while non-zero
	seq      uint64
	busy     bool
	inflight context.CancelFunc
}

// NewSessionService constructs a SessionService in the Idle state.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	opts.Flow.Sanitize()
	opts.Federation.Sanitize()

	c := opts.Clock
	if c == nil {
		c = clock.Real{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	jmes := opts.JMESPath
	if jmes == nil {
		jmes = jmespathLibEvaluator{}
	}
	registry := opts.Registry
	if registry == nil {
		registry = NewPrincipalRegistry(c)
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = NewTokenFactory(config.DefaultTokenConfig(), c)
	}
	broker := opts.Broker
	if broker == nil {
		broker = NewCredentialBroker(config.CredentialConfig{}, c)
	}

	return &SessionService{
		flow:       opts.Flow,
		federation: opts.Federation,
		registry:   registry,
		tokens:     tokens,
		broker:     broker,
		provider:   opts.Provider,
		inspector:  opts.Inspector,
		sink:       opts.Sink,
		clock:      c,
		logger:     logger.With("component", "session"),
		jmes:       jmes,
		guard:      semaphore.NewWeighted(1),
		state:      newSessionState(),
	}
}

// Reset clears the registry, session state and logs and returns to Idle.
// It aborts any in-flight command and always succeeds.
func (s *SessionService) Reset(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	s.resets++
	cancel := s.inflight
	s.inflight = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	// Wait for an aborted command to unwind. If ctx ends first we still
	// reset; the bumped generation keeps the stale command from writing.
	if err := s.guard.Acquire(ctx, 1); err == nil {
		defer s.guard.Release(1)
	}

	emitCtx := context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resets--
	s.registry.Clear()
	s.state = newSessionState()

	s.emitLocked(emitCtx, domainauth.Event{Kind: domainauth.EventStepChanged})
	s.emitLocked(emitCtx, domainauth.Event{Kind: domainauth.EventPrincipalChanged})
	s.emitLocked(emitCtx, domainauth.Event{Kind: domainauth.EventUserListChanged, Users: []domainauth.UserSummary{}})
	s.emitLocked(emitCtx, domainauth.Event{Kind: domainauth.EventTokensChanged, Tokens: &domainauth.TokenSet{}})
	s.emitLocked(emitCtx, domainauth.Event{Kind: domainauth.EventCredentialsChanged})
	s.emitLocked(emitCtx, domainauth.Event{Kind: domainauth.EventAccessRevoked, Resources: domainauth.AllResources()})
	s.emitLocked(emitCtx, domainauth.Event{Kind: domainauth.EventProvidersCleared})
	s.emitLocked(emitCtx, domainauth.Event{Kind: domainauth.EventLogsCleared})
	s.logLocked(emitCtx, domainauth.LogInfo, "System reset completed")

	s.logger.InfoContext(ctx, "session reset")
}

// Snapshot returns a copy of the current session state.
func (s *SessionService) Snapshot() domainauth.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domainauth.Snapshot{
		Step:            s.state.step,
		StepName:        s.state.step.String(),
		Busy:            s.busy,
		Users:           s.registry.Summaries(),
		Tokens:          s.state.tokens.Clone(),
		Access:          make(map[domainauth.ResourceCategory]bool, len(s.state.access)),
		ActiveProviders: append([]string{}, s.state.activeProviders...),
		Logs:            append([]domainauth.LogEntry{}, s.state.logs...),
	}
	if p, ok := s.currentPrincipalLocked(); ok {
		snap.Principal = &p
	}
	if s.state.credentials != nil {
		creds := *s.state.credentials
		snap.Credentials = &creds
	}
	for k, v := range s.state.access {
		snap.Access[k] = v
	}
	return snap
}

// Status reports whether the session is authenticated, whether its access
// token is still valid, and whether it can be refreshed or must restart.
func (s *SessionService) Status(ctx context.Context) domainauth.SessionStatus {
	snap := s.Snapshot()

	st := domainauth.SessionStatus{
		Step:          snap.Step,
		Authenticated: snap.Principal != nil,
		IdentityType:  "None",
	}
	if p := snap.Principal; p != nil {
		st.IdentityType = "Authenticated"
		if p.IsFederated() {
			st.IdentityType = fmt.Sprintf("Federated (%s)", p.Provider)
		}
	}
	if tok := snap.Tokens.AccessToken; tok != nil {
		exp := tok.ExpiresAt
		st.AccessExpiresAt = &exp
		st.AccessValid = s.tokenUsable(ctx, tok) == nil
	}
	if tok := snap.Tokens.RefreshToken; tok != nil {
		exp := tok.ExpiresAt
		st.RefreshExpiresAt = &exp
		st.Refreshable = s.tokenUsable(ctx, tok) == nil
	}
	if c := snap.Credentials; c != nil {
		st.CredentialsValid = s.clock.Now().Before(c.Expiration)
	}
	return st
}

// Query evaluates a JMESPath expression against the JSON form of the snapshot.
func (s *SessionService) Query(expr string) (any, error) {
	if err := s.jmes.Validate(expr); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid query expression")
	}
	raw, err := json.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	var data any
	if err = json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	out, err := s.jmes.Evaluate(expr, data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "evaluate query")
	}
	return out, nil
}

// tokenUsable checks expiry through the inspector when one is configured.
func (s *SessionService) tokenUsable(ctx context.Context, tok *domainauth.Token) error {
	if s.inspector != nil {
		_, err := s.inspector.Inspect(ctx, tok.Raw, tok.Use)
		return err
	}
	// Usable through the exp instant itself, as go-oidc treats it.
	if s.clock.Now().After(tok.ExpiresAt) {
		return domainauth.ErrTokenExpired
	}
	return nil
}

func (s *SessionService) currentPrincipalLocked() (domainauth.Principal, bool) {
	if s.state.principalID == "" {
		return domainauth.Principal{}, false
	}
	return s.registry.Get(s.state.principalID)
}

// emitLocked stamps and publishes ev. Sink failures are logged, never returned.
func (s *SessionService) emitLocked(ctx context.Context, ev domainauth.Event) {
	s.seq++
	ev.ID = uuid.NewString()
	ev.Seq = s.seq
	ev.At = s.clock.Now()
	ev.Step = s.state.step
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "publish event failed", "kind", ev.Kind, "error", err)
	}
}

func (s *SessionService) setStepLocked(ctx context.Context, step domainauth.Step) {
	s.state.step = step
	s.emitLocked(ctx, domainauth.Event{Kind: domainauth.EventStepChanged})
}

func (s *SessionService) logLocked(ctx context.Context, kind domainauth.LogKind, msg string) {
	entry := domainauth.LogEntry{Kind: kind, Message: msg, At: s.clock.Now()}
	s.state.logs = append(s.state.logs, entry)
	if over := len(s.state.logs) - s.flow.LogHistory; over > 0 {
		s.state.logs = append([]domainauth.LogEntry(nil), s.state.logs[over:]...)
	}
	s.emitLocked(ctx, domainauth.Event{Kind: domainauth.EventLogEmitted, Log: &entry})
	s.logger.DebugContext(ctx, "flow log", "kind", kind, "message", msg, "step", s.state.step.String())
}

// logError records a log line outside of any flow (validation failures).
func (s *SessionService) logError(ctx context.Context, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLocked(context.WithoutCancel(ctx), domainauth.LogError, msg)
}

// flowRun is one in-flight command holding the busy guard.
type flowRun struct {
	s       *SessionService
	ctx     context.Context // canceled by Reset
	emitCtx context.Context
	cancel  context.CancelFunc
	gen     uint64
	command string
}

// begin acquires the busy guard or fails with ErrBusy.
func (s *SessionService) begin(ctx context.Context, command string) (*flowRun, error) {
	if !s.guard.TryAcquire(1) {
		s.logError(ctx, "Another operation is already in progress")
		s.logger.WarnContext(ctx, "command rejected", "command", command, "reason", "busy")
		return nil, fmt.Errorf("%s: %w", command, domainauth.ErrBusy)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.resets > 0 {
		// A Reset is waiting for the guard; give it up rather than start a flow it would wipe.
		s.mu.Unlock()
		cancel()
		s.guard.Release(1)
		s.logger.WarnContext(ctx, "command rejected", "command", command, "reason", "reset pending")
		return nil, fmt.Errorf("%s: %w", command, domainauth.ErrAborted)
	}
	s.busy = true
	s.inflight = cancel
	gen := s.gen
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "command started", "command", command)
	return &flowRun{
		s:       s,
		ctx:     runCtx,
		emitCtx: context.WithoutCancel(ctx),
		cancel:  cancel,
		gen:     gen,
		command: command,
	}, nil
}

// end releases the guard. err is the command's final result, used for logging.
func (r *flowRun) end(err error) {
	r.cancel()
	r.s.mu.Lock()
	if r.s.gen == r.gen {
		r.s.inflight = nil
	}
	r.s.busy = false
	r.s.mu.Unlock()
	r.s.guard.Release(1)

	if err != nil {
		r.s.logger.WarnContext(r.emitCtx, "command failed",
			"command", r.command,
			"code", apperrors.GetCode(err),
			"error", err)
		return
	}
	r.s.logger.InfoContext(r.emitCtx, "command completed", "command", r.command)
}

// apply runs fn under the state lock unless Reset has superseded this run.
func (r *flowRun) apply(fn func() error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.gen != r.gen {
		return domainauth.ErrAborted
	}
	return fn()
}

// wait is a simulated network round trip.
func (r *flowRun) wait(d time.Duration) error {
	if err := r.s.clock.Sleep(r.ctx, d); err != nil {
		r.s.mu.Lock()
		superseded := r.s.gen != r.gen
		r.s.mu.Unlock()
		if superseded {
			return domainauth.ErrAborted
		}
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "command canceled")
	}
	return nil
}

// log appends a flow log line.
func (r *flowRun) log(kind domainauth.LogKind, msg string) error {
	return r.apply(func() error {
		r.s.logLocked(r.emitCtx, kind, msg)
		return nil
	})
}

// step moves the flow to the given stage.
func (r *flowRun) step(step domainauth.Step) error {
	return r.apply(func() error {
		r.s.setStepLocked(r.emitCtx, step)
		return nil
	})
}

// fail logs msg as an error and returns the session to Idle. A run
// superseded by Reset leaves the state alone.
func (r *flowRun) fail(msg string, cause error) error {
	if errors.Is(cause, domainauth.ErrAborted) {
		return fmt.Errorf("%s: %w", r.command, cause)
	}
	switch {
	case apperrors.IsCanceled(cause):
		msg = "Operation canceled"
	case msg == "":
		msg = "Operation failed"
	}
	_ = r.apply(func() error {
		r.s.logLocked(r.emitCtx, domainauth.LogError, msg)
		r.s.setStepLocked(r.emitCtx, domainauth.StepIdle)
		return nil
	})
	return fmt.Errorf("%s: %w", r.command, cause)
}
