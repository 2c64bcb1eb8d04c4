// Package console renders session events and status to a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	domainauth "github.com/target/idflow/internal/domain/auth"
	"github.com/target/idflow/internal/ports"
)

var (
	colorInfo    = lipgloss.Color("#06B6D4") // Cyan
	colorSuccess = lipgloss.Color("#10B981") // Emerald
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorAccent  = lipgloss.Color("#7C3AED") // Purple
)

// tokenPreview is how many characters of a raw token are shown.
const tokenPreview = 32

type styles struct {
	info, success, failure, muted, title, label lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		info:    r.NewStyle().Foreground(colorInfo),
		success: r.NewStyle().Foreground(colorSuccess),
		failure: r.NewStyle().Foreground(colorError).Bold(true),
		muted:   r.NewStyle().Foreground(colorMuted),
		title:   r.NewStyle().Foreground(colorAccent).Bold(true),
		label:   r.NewStyle().Foreground(colorMuted).Width(16),
	}
}

// Presenter is a ports.EventSink that prints the flow as it happens.
// Colors are used only when the writer is a color-capable terminal.
type Presenter struct {
	mu         sync.Mutex
	w          io.Writer
	style      styles
	showEvents bool // print step changes and artifacts, not just log lines
}

var _ ports.EventSink = (*Presenter)(nil)

// Options configures a Presenter.
type Options struct {
	// Verbose also prints step changes, users, tokens, credentials and access.
	Verbose bool
}

// NewPresenter creates a presenter writing to w.
func NewPresenter(w io.Writer, opts Options) *Presenter {
	return &Presenter{
		w:          w,
		style:      newStyles(lipgloss.NewRenderer(w)),
		showEvents: opts.Verbose,
	}
}

func (p *Presenter) Publish(_ context.Context, ev domainauth.Event) error {
	lines := p.render(ev)
	if len(lines) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, strings.Join(lines, "\n")+"\n")
	return err
}

func (p *Presenter) render(ev domainauth.Event) []string {
	s := p.style
	switch ev.Kind {
	case domainauth.EventLogEmitted:
		if ev.Log == nil {
			return nil
		}
		return []string{p.logLine(*ev.Log)}
	case domainauth.EventLogsCleared:
		return []string{s.muted.Render("-- logs cleared --")}
	}

	if !p.showEvents {
		return nil
	}

	switch ev.Kind {
	case domainauth.EventStepChanged:
		return []string{s.muted.Render(fmt.Sprintf("-- step %d/5: %s", ev.Step, ev.Step))}
	case domainauth.EventUserListChanged:
		return p.users(ev.Users)
	case domainauth.EventTokensChanged:
		if ev.Tokens == nil || ev.Tokens.IsEmpty() {
			return []string{s.muted.Render("tokens cleared")}
		}
		return p.tokens(*ev.Tokens)
	case domainauth.EventCredentialsChanged:
		if ev.Credentials == nil {
			return []string{s.muted.Render("credentials cleared")}
		}
		return p.credentials(*ev.Credentials)
	case domainauth.EventAccessGranted:
		return []string{p.access(ev.Resources, true)}
	case domainauth.EventAccessRevoked:
		return []string{p.access(ev.Resources, false)}
	case domainauth.EventProviderActivated:
		return []string{s.info.Render("provider active: " + ev.Provider)}
	}
	return nil
}

func (p *Presenter) logLine(entry domainauth.LogEntry) string {
	s := p.style
	ts := s.muted.Render(entry.At.Format("15:04:05"))
	switch entry.Kind {
	case domainauth.LogSuccess:
		return ts + " " + s.success.Render("✓ "+entry.Message)
	case domainauth.LogError:
		return ts + " " + s.failure.Render("✗ "+entry.Message)
	default:
		return ts + " " + s.info.Render("• "+entry.Message)
	}
}

func (p *Presenter) users(users []domainauth.UserSummary) []string {
	out := []string{p.style.title.Render(fmt.Sprintf("Users (%d)", len(users)))}
	for _, u := range users {
		line := "  " + u.Email + " [" + string(u.Status) + "]"
		if u.Provider != "" {
			line += " via " + u.Provider
		}
		out = append(out, line)
	}
	return out
}

func (p *Presenter) tokens(ts domainauth.TokenSet) []string {
	out := []string{p.style.title.Render("Tokens")}
	if ot := ts.OAuth2(); ot != nil {
		out = append(out, p.field("token_type", ot.Type()))
	}
	for _, tok := range []*domainauth.Token{ts.IDToken, ts.AccessToken, ts.RefreshToken} {
		if tok == nil {
			continue
		}
		out = append(out, p.field(string(tok.Use)+"_token", preview(tok.Raw)+"  exp "+tok.ExpiresAt.UTC().Format(time.RFC3339)))
	}
	return out
}

func (p *Presenter) credentials(c domainauth.CredentialSet) []string {
	return []string{
		p.style.title.Render("AWS credentials"),
		p.field("AccessKeyId", c.AccessKeyID),
		p.field("SecretAccessKey", mask(c.SecretAccessKey)),
		p.field("SessionToken", preview(c.SessionToken)),
		p.field("Expiration", c.Expiration.UTC().Format(time.RFC3339)),
	}
}

func (p *Presenter) access(resources []domainauth.ResourceCategory, granted bool) string {
	names := make([]string, 0, len(resources))
	for _, r := range resources {
		names = append(names, r.DisplayName())
	}
	if granted {
		return p.style.success.Render("access granted: " + strings.Join(names, ", "))
	}
	return p.style.muted.Render("access revoked: " + strings.Join(names, ", "))
}

func (p *Presenter) field(label, value string) string {
	return "  " + p.style.label.Render(label) + value
}

// RenderStatus writes a human-readable session status.
func (p *Presenter) RenderStatus(st domainauth.SessionStatus) error {
	s := p.style
	yesNo := func(ok bool) string {
		if ok {
			return s.success.Render("yes")
		}
		return s.failure.Render("no")
	}
	lines := []string{
		s.title.Render("Session"),
		p.field("Step", fmt.Sprintf("%d (%s)", st.Step, st.Step)),
		p.field("Identity", st.IdentityType),
		p.field("Access valid", yesNo(st.AccessValid)),
		p.field("Refreshable", yesNo(st.Refreshable)),
		p.field("Credentials", yesNo(st.CredentialsValid)),
	}
	if st.AccessExpiresAt != nil {
		lines = append(lines, p.field("Access expires", st.AccessExpiresAt.UTC().Format(time.RFC3339)))
	}
	if st.RefreshExpiresAt != nil {
		lines = append(lines, p.field("Refresh expires", st.RefreshExpiresAt.UTC().Format(time.RFC3339)))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, strings.Join(lines, "\n")+"\n")
	return err
}

func preview(raw string) string {
	if len(raw) <= tokenPreview {
		return raw
	}
	return raw[:tokenPreview] + "..."
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}
