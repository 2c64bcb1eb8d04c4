package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/target/idflow/config"
	"github.com/target/idflow/internal/bootstrap"
	apperrors "github.com/target/idflow/internal/errors"
	"github.com/target/idflow/internal/observability/metrics"
)

type commandFn func(ctx context.Context, sh *shell, args []string) error

type command struct {
	name        string
	usage       string
	description string
	run         commandFn
}

// errQuit stops the loop without reporting an error.
var errQuit = errors.New("quit")

func commands() map[string]command {
	return map[string]command{
		"signup": {
			name:        "signup",
			usage:       "signup <email> <password>",
			description: "Register a new user and run the full flow",
			run:         runSignUp,
		},
		"signin": {
			name:        "signin",
			usage:       "signin <email> <password>",
			description: "Sign in an existing user and run the full flow",
			run:         runSignIn,
		},
		"federated": {
			name:        "federated",
			usage:       "federated [provider]",
			description: "Sign in through an external identity provider",
			run:         runFederated,
		},
		"refresh": {
			name:        "refresh",
			usage:       "refresh",
			description: "Reissue id and access tokens from the refresh token",
			run:         runRefresh,
		},
		"reset": {
			name:        "reset",
			usage:       "reset",
			description: "Clear users, tokens, credentials and logs",
			run:         runReset,
		},
		"status": {
			name:        "status",
			usage:       "status",
			description: "Show whether the session is usable or must restart",
			run:         runStatus,
		},
		"users": {
			name:        "users",
			usage:       "users",
			description: "List registered users",
			run:         runUsers,
		},
		"query": {
			name:        "query",
			usage:       "query <jmespath>",
			description: "Evaluate a JMESPath expression against the session snapshot",
			run:         runQuery,
		},
		"help": {
			name:        "help",
			usage:       "help",
			description: "Show available commands",
			run:         func(_ context.Context, sh *shell, _ []string) error { return printHelp(sh.out) },
		},
		"quit": {
			name:        "quit",
			usage:       "quit",
			description: "Exit",
			run:         func(context.Context, *shell, []string) error { return errQuit },
		},
	}
}

// instrumented commands drive the session and are reported as metrics.
var instrumented = map[string]bool{
	"signup": true, "signin": true, "federated": true, "refresh": true, "reset": true,
}

func printHelp(w io.Writer) error {
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := writef(w, "Commands:\n"); err != nil {
		return err
	}
	for _, name := range names {
		c := cmds[name]
		if err := writef(w, "  %-28s %s\n", c.usage, c.description); err != nil {
			return err
		}
	}
	return nil
}

type shell struct {
	rt     *bootstrap.Runtime
	cfg    *config.AppConfig
	out    io.Writer
	logger *slog.Logger
}

func newShell(rt *bootstrap.Runtime, cfg *config.AppConfig, out io.Writer, logger *slog.Logger) *shell {
	return &shell{rt: rt, cfg: cfg, out: out, logger: logger}
}

// loop reads one command per line until EOF, quit, or ctx ends.
// Command failures are printed and do not stop the loop.
func (sh *shell) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		err := sh.exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			if werr := writef(sh.out, "error: %v\n", err); werr != nil {
				return werr
			}
		}
	}
	return scanner.Err()
}

func (sh *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}

	name := strings.ToLower(fields[0])
	if name == "exit" {
		name = "quit"
	}
	cmd, ok := commands()[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}

	start := time.Now()
	err := cmd.run(ctx, sh, fields[1:])
	if instrumented[name] {
		elapsed := time.Since(start)
		metrics.EmitCommand(sh.rt.Metrics, metrics.CommandMetric{
			Command:  name,
			Duration: elapsed,
			Err:      err,
		})
		sh.logger.DebugContext(ctx, "command finished",
			"command", name,
			"duration", elapsed,
			"error", err)
	}
	return err
}

// credentialArgs leaves missing values empty so the session reports them.
func credentialArgs(args []string) (string, string, error) {
	if len(args) > 2 {
		return "", "", apperrors.ValidationField("args", "expected <email> <password>")
	}
	padded := append(append([]string{}, args...), "", "")
	return padded[0], padded[1], nil
}

func runSignUp(ctx context.Context, sh *shell, args []string) error {
	email, password, err := credentialArgs(args)
	if err != nil {
		return err
	}
	return sh.rt.Session.SignUp(ctx, email, password)
}

func runSignIn(ctx context.Context, sh *shell, args []string) error {
	email, password, err := credentialArgs(args)
	if err != nil {
		return err
	}
	return sh.rt.Session.SignIn(ctx, email, password)
}

func runFederated(ctx context.Context, sh *shell, args []string) error {
	provider := sh.cfg.Federation.DefaultProvider
	if len(args) > 0 {
		provider = args[0]
	}
	return sh.rt.Session.FederatedSignIn(ctx, provider)
}

func runRefresh(ctx context.Context, sh *shell, _ []string) error {
	return sh.rt.Session.RefreshTokens(ctx)
}

func runReset(ctx context.Context, sh *shell, _ []string) error {
	sh.rt.Session.Reset(ctx)
	return nil
}

func runStatus(ctx context.Context, sh *shell, _ []string) error {
	st := sh.rt.Session.Status(ctx)
	if sh.rt.Presenter != nil {
		return sh.rt.Presenter.RenderStatus(st)
	}
	return writeJSON(sh.out, st)
}

func runUsers(_ context.Context, sh *shell, _ []string) error {
	users := sh.rt.Session.Snapshot().Users
	if len(users) == 0 {
		return writef(sh.out, "no users\n")
	}
	for _, u := range users {
		line := u.Email + "\t" + string(u.Status)
		if u.Provider != "" {
			line += "\t" + u.Provider
		}
		if err := writef(sh.out, "%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func runQuery(_ context.Context, sh *shell, args []string) error {
	if len(args) == 0 {
		return apperrors.ValidationField("args", "expected <jmespath>")
	}
	return sh.printQuery(strings.Join(args, " "))
}

func (sh *shell) printQuery(expr string) error {
	result, err := sh.rt.Session.Query(expr)
	if err != nil {
		return err
	}
	return writeJSON(sh.out, result)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
