package auth

import "time"

// EventKind names a state change emitted by the session state machine.
type EventKind string

const (
	EventStepChanged        EventKind = "step_changed"
	EventLogEmitted         EventKind = "log_emitted"
	EventUserListChanged    EventKind = "user_list_changed"
	EventPrincipalChanged   EventKind = "principal_changed"
	EventTokensChanged      EventKind = "tokens_changed"
	EventCredentialsChanged EventKind = "credentials_changed"
	EventAccessGranted      EventKind = "access_granted"
	EventAccessRevoked      EventKind = "access_revoked"
	EventProviderActivated  EventKind = "provider_activated"
	EventProvidersCleared   EventKind = "providers_cleared"
	EventLogsCleared        EventKind = "logs_cleared"
)

// LogKind classifies a log line for rendering.
type LogKind string

const (
	LogInfo    LogKind = "info"
	LogSuccess LogKind = "success"
	LogError   LogKind = "error"
)

// LogEntry is one line of the flow log.
type LogEntry struct {
	Kind    LogKind   `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Event is a single observation handed to presentation adapters.
// Only the payload field matching Kind is populated.
type Event struct {
	ID          string             `json:"id"`
	Seq         uint64             `json:"seq"`
	Kind        EventKind          `json:"kind"`
	At          time.Time          `json:"at"`
	Step        Step               `json:"step"`
	Log         *LogEntry          `json:"log,omitempty"`
	Users       []UserSummary      `json:"users,omitempty"`
	Principal   *Principal         `json:"principal,omitempty"`
	Tokens      *TokenSet          `json:"tokens,omitempty"`
	Credentials *CredentialSet     `json:"credentials,omitempty"`
	Resources   []ResourceCategory `json:"resources,omitempty"`
	Provider    string             `json:"provider,omitempty"`
}
