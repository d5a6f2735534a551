package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ong-collab/collabctl/internal/adapter/gateway"
	"github.com/ong-collab/collabctl/internal/config"
	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/guard"
	"github.com/ong-collab/collabctl/internal/infrastructure/cache"
	"github.com/ong-collab/collabctl/internal/infrastructure/storage"
	"github.com/ong-collab/collabctl/internal/navigation"
	"github.com/ong-collab/collabctl/internal/output"
	"github.com/ong-collab/collabctl/internal/session"
	"github.com/ong-collab/collabctl/internal/utils/otel"
	"github.com/ong-collab/collabctl/internal/utils/sanitizer"
	"github.com/ong-collab/collabctl/internal/utils/validator"
)

// app is the wired client for one command invocation.
type app struct {
	printer   *output.Printer
	session   *session.Manager
	resources *gateway.ResourceClient
	nav       *navigation.Recorder
	validate  *validator.Validator
	sanitize  *sanitizer.Sanitizer
	closers   []func(context.Context) error
}

// newApp wires storage, gateway, session manager and resource client, then
// restores the persisted session.
func newApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a := &app{
		printer:  newPrinter(cmd),
		validate: validator.New(),
		sanitize: sanitizer.New(),
	}

	shutdown, err := otel.InitProvider(ctx, otel.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		a.printer.Warning("telemetry disabled: %v", err)
	} else {
		a.closers = append(a.closers, shutdown)
	}

	store, closeStore, err := openStore(cfg.Session, logger)
	if err != nil {
		a.close()
		return nil, configError(err)
	}
	if closeStore != nil {
		a.closers = append(a.closers, func(context.Context) error { return closeStore() })
	}

	client, err := gateway.NewClient(gateway.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
		Logger:    logger,
	})
	if err != nil {
		a.close()
		return nil, configError(err)
	}

	a.nav = navigation.NewRecorder(func(route string) {
		logger.Debug("navigate", "route", route)
	})

	a.session, err = session.NewManager(session.Options{
		Store:         store,
		Auth:          gateway.NewAuthClient(client),
		Navigator:     a.nav,
		Validator:     a.validate,
		ExpiryBuffer:  cfg.Session.ExpiryBuffer,
		CheckInterval: cfg.Session.CheckInterval,
		Logger:        logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.resources = gateway.NewResourceClient(client, a.session, cache.NewQueryCache(cfg.Cache.Size, cfg.Cache.TTL))
	a.session.OnChange(func(s session.Snapshot) {
		if !s.Authenticated() {
			a.resources.PurgeCache()
		}
	})

	if err := a.session.Init(ctx); err != nil {
		logger.Debug("session init failed", "error", err)
	}
	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Debug("shutdown", "error", err)
		}
	}
}

// openStore builds the configured session store. The returned func, when
// not nil, releases the store.
func openStore(sc config.SessionConfig, logger *slog.Logger) (domain.SessionStore, func() error, error) {
	switch sc.Store {
	case config.StoreMemory:
		return storage.NewMemoryStore(), nil, nil
	case config.StoreRedis:
		s, err := storage.NewRedisStoreWithURL(sc.RedisURL, sc.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreFile, "":
		s, err := storage.NewFileStore(sc.Dir, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", sc.Store)
	}
}

// requireSession is the protected guard for commands.
func (a *app) requireSession() (domain.Identity, error) {
	snap := a.session.Snapshot()
	switch d := guard.Protected(snap); d.Kind {
	case guard.Render:
		return *snap.Identity, nil
	default:
		return domain.Identity{}, &output.CLIError{
			Summary:    "not logged in",
			Detail:     fmt.Sprintf("session is %s", snap.State),
			Suggestion: "Run 'collabctl login'",
			ExitCode:   output.ExitAuthRequired,
			Err:        domain.ErrNotAuthenticated,
		}
	}
}

// rejectSession is the public guard for commands. It reports true, after
// telling the user, when a session already exists.
func (a *app) rejectSession() bool {
	snap := a.session.Snapshot()
	if guard.Public(snap).Kind != guard.Redirect {
		return false
	}
	a.printer.Info("Already logged in as %s (%s)", snap.Identity.Email, snap.Identity.Role)
	a.printer.Print("  Run 'collabctl logout' first to switch accounts")
	return true
}

// withApp runs fn with a wired app and releases it afterwards.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args, a)
	}
}

// protected is withApp behind requireSession.
func protected(fn func(cmd *cobra.Command, args []string, a *app, id domain.Identity) error) func(*cobra.Command, []string) error {
	return withApp(func(cmd *cobra.Command, args []string, a *app) error {
		id, err := a.requireSession()
		if err != nil {
			return err
		}
		return fn(cmd, args, a, id)
	})
}
