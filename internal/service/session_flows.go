package service

import (
	"context"
	"errors"
	"fmt"

	domainauth "github.com/target/idflow/internal/domain/auth"
	apperrors "github.com/target/idflow/internal/errors"
	"github.com/target/idflow/internal/ports"
)

// simulatedAuthCode is handed to the provider as the callback's authorization code.
const simulatedAuthCode = "simulated-authorization-code"

// SignUp registers email as a CONFIRMED principal and runs the full flow
// through credential exchange. The password is required but never checked.
func (s *SessionService) SignUp(ctx context.Context, email, password string) (err error) {
	if email == "" || password == "" {
		s.logError(ctx, "Email and password required for sign up")
		return fmt.Errorf("sign up: %w", domainauth.ErrMissingCredentials)
	}

	run, err := s.begin(ctx, "sign up")
	if err != nil {
		return err
	}
	defer func() { run.end(err) }()

	if err = run.log(domainauth.LogInfo, "Starting user registration for "+email); err != nil {
		return run.fail("", err)
	}
	if err = run.step(domainauth.StepValidating); err != nil {
		return run.fail("", err)
	}
	if err = run.wait(s.flow.ValidateDelay); err != nil {
		return run.fail("", err)
	}

	if _, exists := s.registry.Find(email); exists {
		return run.fail("User already exists", domainauth.ErrDuplicateEmail)
	}

	if err = run.step(domainauth.StepAuthenticating); err != nil {
		return run.fail("", err)
	}
	if err = run.log(domainauth.LogInfo, "Validating credentials with User Pool"); err != nil {
		return run.fail("", err)
	}
	if err = run.wait(s.flow.CheckDelay); err != nil {
		return run.fail("", err)
	}

	err = run.apply(func() error {
		p, regErr := s.registry.Register(email)
		if regErr != nil {
			return regErr
		}
		s.setPrincipalLocked(run.emitCtx, p)
		s.setStepLocked(run.emitCtx, domainauth.StepAuthenticated)
		s.logLocked(run.emitCtx, domainauth.LogSuccess, "User registered successfully")
		return nil
	})
	if err != nil {
		if errors.Is(err, domainauth.ErrDuplicateEmail) {
			return run.fail("User already exists", err)
		}
		return run.fail("User registration failed", err)
	}

	return run.completeFlow("Sign up flow completed successfully", "")
}

// SignIn authenticates an existing principal and runs the full flow. Any
// non-empty password is accepted: there is no credential verification.
func (s *SessionService) SignIn(ctx context.Context, email, password string) (err error) {
	if email == "" || password == "" {
		s.logError(ctx, "Email and password required for sign in")
		return fmt.Errorf("sign in: %w", domainauth.ErrMissingCredentials)
	}

	run, err := s.begin(ctx, "sign in")
	if err != nil {
		return err
	}
	defer func() { run.end(err) }()

	if err = run.log(domainauth.LogInfo, "Starting authentication for "+email); err != nil {
		return run.fail("", err)
	}
	if err = run.step(domainauth.StepValidating); err != nil {
		return run.fail("", err)
	}
	if err = run.wait(s.flow.ValidateDelay); err != nil {
		return run.fail("", err)
	}

	p, found := s.registry.Find(email)
	if !found {
		return run.fail("User not found. Please sign up first.", domainauth.ErrPrincipalNotFound)
	}

	if err = run.step(domainauth.StepAuthenticating); err != nil {
		return run.fail("", err)
	}
	if err = run.log(domainauth.LogInfo, "Authenticating with User Pool"); err != nil {
		return run.fail("", err)
	}
	if err = run.wait(s.flow.CheckDelay); err != nil {
		return run.fail("", err)
	}

	err = run.apply(func() error {
		touched, touchErr := s.registry.TouchSignIn(p.ID)
		if touchErr != nil {
			return touchErr
		}
		s.setPrincipalLocked(run.emitCtx, touched)
		s.setStepLocked(run.emitCtx, domainauth.StepAuthenticated)
		s.logLocked(run.emitCtx, domainauth.LogSuccess, "Authentication successful")
		return nil
	})
	if err != nil {
		return run.fail("Authentication failed", err)
	}

	return run.completeFlow("Sign in flow completed successfully", "")
}

// FederatedSignIn simulates a redirect to provider, receives a placeholder
// identity from the callback and runs the full flow. An empty provider means
// the configured default. Every call creates a new federated principal.
func (s *SessionService) FederatedSignIn(ctx context.Context, provider string) (err error) {
	if provider == "" {
		provider = s.federation.DefaultProvider
	}
	if s.provider == nil || !s.provider.Supports(provider) {
		s.logError(ctx, "Unsupported identity provider: "+provider)
		return fmt.Errorf("federated sign in %q: %w", provider, domainauth.ErrUnsupportedProvider)
	}

	run, err := s.begin(ctx, "federated sign in")
	if err != nil {
		return err
	}
	defer func() { run.end(err) }()

	if err = run.log(domainauth.LogInfo, "Starting federated sign in with "+provider); err != nil {
		return run.fail("", err)
	}
	if err = run.step(domainauth.StepValidating); err != nil {
		return run.fail("", err)
	}
	if err = run.wait(s.flow.ValidateDelay); err != nil {
		return run.fail("", err)
	}

	authURL, state, nonce, err := s.provider.Begin(run.ctx, ports.BeginInput{
		Provider:    provider,
		RedirectURL: s.federation.RedirectURL,
	})
	if err != nil {
		return run.fail("Federated sign in failed", apperrors.Wrap(err, apperrors.ErrCodeInternal, "begin federated sign in"))
	}
	s.logger.DebugContext(ctx, "federation redirect", "provider", provider, "auth_url", authURL)

	if err = run.log(domainauth.LogInfo, fmt.Sprintf("Redirecting to %s OAuth", provider)); err != nil {
		return run.fail("", err)
	}
	if err = run.wait(s.flow.RedirectDelay); err != nil {
		return run.fail("", err)
	}

	if err = run.step(domainauth.StepAuthenticating); err != nil {
		return run.fail("", err)
	}
	if err = run.log(domainauth.LogInfo, "Receiving OAuth callback"); err != nil {
		return run.fail("", err)
	}
	if err = run.wait(s.flow.StageDelay); err != nil {
		return run.fail("", err)
	}

	ident, err := s.provider.Exchange(run.ctx, ports.ExchangeInput{
		Provider: provider,
		Code:     simulatedAuthCode,
		State:    state,
		Nonce:    nonce,
	})
	if err != nil {
		return run.fail("Federated sign in failed", apperrors.Wrap(err, apperrors.ErrCodeInternal, "exchange federated callback"))
	}

	err = run.apply(func() error {
		p := s.registry.RegisterFederated(ident.Email, ident.Provider)
		s.setPrincipalLocked(run.emitCtx, p)
		s.setStepLocked(run.emitCtx, domainauth.StepAuthenticated)
		s.logLocked(run.emitCtx, domainauth.LogSuccess, "Federated authentication successful")
		return nil
	})
	if err != nil {
		return run.fail("", err)
	}

	return run.completeFlow("Federated sign in completed", ident.Provider)
}

// RefreshTokens replaces the id and access tokens using the current refresh
// token. The refresh token itself and the flow step are left untouched.
func (s *SessionService) RefreshTokens(ctx context.Context) (err error) {
	run, err := s.begin(ctx, "refresh tokens")
	if err != nil {
		return err
	}
	defer func() { run.end(err) }()

	var refresh *domainauth.Token
	err = run.apply(func() error {
		if s.state.tokens.RefreshToken == nil {
			s.logLocked(run.emitCtx, domainauth.LogError, "No refresh token available")
			return domainauth.ErrNoRefreshToken
		}
		refresh = s.state.tokens.RefreshToken
		return nil
	})
	if err != nil {
		return fmt.Errorf("refresh tokens: %w", err)
	}

	if err = s.tokenUsable(run.ctx, refresh); err != nil {
		msg, cause := "Refresh token rejected", err
		if errors.Is(err, domainauth.ErrTokenExpired) {
			msg, cause = "Refresh token expired, sign in again", domainauth.ErrRefreshTokenExpired
		}
		if logErr := run.log(domainauth.LogError, msg); logErr != nil {
			return fmt.Errorf("refresh tokens: %w", logErr)
		}
		return fmt.Errorf("refresh tokens: %w", cause)
	}

	if err = run.log(domainauth.LogInfo, "Refreshing access tokens"); err != nil {
		return fmt.Errorf("refresh tokens: %w", err)
	}
	if err = run.wait(s.flow.RefreshDelay); err != nil {
		if !errors.Is(err, domainauth.ErrAborted) {
			_ = run.log(domainauth.LogError, "Token refresh canceled")
		}
		return fmt.Errorf("refresh tokens: %w", err)
	}

	err = run.apply(func() error {
		p, ok := s.currentPrincipalLocked()
		if !ok {
			s.logLocked(run.emitCtx, domainauth.LogError, "No active principal")
			return domainauth.ErrNoActivePrincipal
		}
		idTok, accessTok, issueErr := s.tokens.ReissueShortLived(&p)
		if issueErr != nil {
			s.logLocked(run.emitCtx, domainauth.LogError, "Token refresh failed")
			return issueErr
		}
		s.state.tokens.IDToken = idTok
		s.state.tokens.AccessToken = accessTok
		s.logLocked(run.emitCtx, domainauth.LogSuccess, "Tokens refreshed successfully")
		s.emitTokensLocked(run.emitCtx)
		return nil
	})
	if err != nil {
		return fmt.Errorf("refresh tokens: %w", err)
	}
	return nil
}

// completeFlow runs the shared tail of every sign-in flow: token issuance,
// credential exchange and the access grant. A non-empty provider is marked
// active once access is granted.
func (r *flowRun) completeFlow(doneMsg, provider string) error {
	s := r.s

	if err := r.wait(s.flow.StageDelay); err != nil {
		return r.fail("", err)
	}
	err := r.apply(func() error {
		p, ok := s.currentPrincipalLocked()
		if !ok {
			return domainauth.ErrNoActivePrincipal
		}
		set, issueErr := s.tokens.IssueFullSet(&p)
		if issueErr != nil {
			return issueErr
		}
		s.state.tokens = set
		s.logLocked(r.emitCtx, domainauth.LogSuccess, "JWT tokens generated")
		s.emitTokensLocked(r.emitCtx)
		s.setStepLocked(r.emitCtx, domainauth.StepTokensIssued)
		return nil
	})
	if err != nil {
		return r.fail("Token issuance failed", err)
	}

	if err = r.wait(s.flow.StageDelay); err != nil {
		return r.fail("", err)
	}
	err = r.apply(func() error {
		creds, issueErr := s.broker.Issue()
		if issueErr != nil {
			return issueErr
		}
		s.state.credentials = &creds
		s.logLocked(r.emitCtx, domainauth.LogSuccess, "AWS temporary credentials issued")
		credsCopy := creds
		s.emitLocked(r.emitCtx, domainauth.Event{Kind: domainauth.EventCredentialsChanged, Credentials: &credsCopy})
		s.setStepLocked(r.emitCtx, domainauth.StepCredentialsExchanged)
		return nil
	})
	if err != nil {
		return r.fail("Credential exchange failed", apperrors.Wrap(err, apperrors.ErrCodeInternal, "issue credentials"))
	}

	if err = r.wait(s.flow.StageDelay); err != nil {
		return r.fail("", err)
	}
	err = r.apply(func() error {
		for _, res := range domainauth.AllResources() {
			s.state.access[res] = true
		}
		s.emitLocked(r.emitCtx, domainauth.Event{Kind: domainauth.EventAccessGranted, Resources: domainauth.AllResources()})
		s.logLocked(r.emitCtx, domainauth.LogSuccess, "AWS service access granted")
		if provider != "" {
			s.activateProviderLocked(r.emitCtx, provider)
		}
		s.logLocked(r.emitCtx, domainauth.LogSuccess, doneMsg)
		return nil
	})
	if err != nil {
		return r.fail("", err)
	}
	return nil
}

func (s *SessionService) setPrincipalLocked(ctx context.Context, p domainauth.Principal) {
	s.state.principalID = p.ID
	s.emitLocked(ctx, domainauth.Event{Kind: domainauth.EventPrincipalChanged, Principal: &p})
	s.emitLocked(ctx, domainauth.Event{Kind: domainauth.EventUserListChanged, Users: s.registry.Summaries()})
}

func (s *SessionService) emitTokensLocked(ctx context.Context) {
	tokens := s.state.tokens.Clone()
	s.emitLocked(ctx, domainauth.Event{Kind: domainauth.EventTokensChanged, Tokens: &tokens})
}

func (s *SessionService) activateProviderLocked(ctx context.Context, provider string) {
	for _, p := range s.state.activeProviders {
		if p == provider {
			return
		}
	}
	s.state.activeProviders = append(s.state.activeProviders, provider)
	s.emitLocked(ctx, domainauth.Event{Kind: domainauth.EventProviderActivated, Provider: provider})
}
