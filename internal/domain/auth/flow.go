package auth

import "time"

// Step is the position within the fixed six-stage flow.
type Step int

const (
	StepIdle Step = iota
	StepValidating
	StepAuthenticating
	StepAuthenticated
	StepTokensIssued
	StepCredentialsExchanged
)

// String returns the stage name.
func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepValidating:
		return "validating"
	case StepAuthenticating:
		return "authenticating"
	case StepAuthenticated:
		return "authenticated"
	case StepTokensIssued:
		return "tokens_issued"
	case StepCredentialsExchanged:
		return "credentials_exchanged"
	default:
		return "unknown"
	}
}

// ResourceCategory is a downstream resource family unlocked by credentials.
type ResourceCategory string

const (
	ResourceObjectStorage     ResourceCategory = "object_storage"
	ResourceKeyValueStore     ResourceCategory = "key_value_store"
	ResourceFunctionExecution ResourceCategory = "function_execution"
	ResourceGenericAPI        ResourceCategory = "generic_api"
)

// AllResources returns every resource category in display order.
func AllResources() []ResourceCategory {
	return []ResourceCategory{
		ResourceObjectStorage,
		ResourceKeyValueStore,
		ResourceFunctionExecution,
		ResourceGenericAPI,
	}
}

// DisplayName returns the cloud service name shown for the category.
func (r ResourceCategory) DisplayName() string {
	switch r {
	case ResourceObjectStorage:
		return "S3"
	case ResourceKeyValueStore:
		return "DynamoDB"
	case ResourceFunctionExecution:
		return "Lambda"
	case ResourceGenericAPI:
		return "API Gateway"
	default:
		return string(r)
	}
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Step            Step                      `json:"step"`
	StepName        string                    `json:"step_name"`
	Busy            bool                      `json:"busy"`
	Principal       *Principal                `json:"principal,omitempty"`
	Users           []UserSummary             `json:"users"`
	Tokens          TokenSet                  `json:"tokens"`
	Credentials     *CredentialSet            `json:"credentials,omitempty"`
	Access          map[ResourceCategory]bool `json:"access"`
	ActiveProviders []string                  `json:"active_providers"`
	Logs            []LogEntry                `json:"logs"`
}

// SessionStatus reports whether the current session is usable or must restart.
type SessionStatus struct {
	Step             Step       `json:"step"`
	Authenticated    bool       `json:"authenticated"`
	IdentityType     string     `json:"identity_type"` // None, Authenticated, or Federated (<provider>)
	AccessValid      bool       `json:"access_valid"`
	Refreshable      bool       `json:"refreshable"`
	CredentialsValid bool       `json:"credentials_valid"`
	AccessExpiresAt  *time.Time `json:"access_expires_at,omitempty"`
	RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty"`
}
