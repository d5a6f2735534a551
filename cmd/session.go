package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/output"
	"github.com/ong-collab/collabctl/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and maintain the stored session",
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  withApp(runSessionStatus),
}

var sessionRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new token pair",
	Long: `Refresh the session now. If the refresh fails the session is cleared
and you have to log in again.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: withApp(runSessionRefresh),
}

var sessionCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one passive expiry check",
	Long:  `Refresh the session only if the access token is expired or about to expire.`,
	Args:  usageArgs(cobra.NoArgs),
	RunE:  protected(runSessionCheck),
}

var sessionWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the session fresh until interrupted",
	Long: `Run the passive expiry check every session.check_interval and print every
session transition. With --metrics-addr, Prometheus metrics are served on
/metrics at that address.

Examples:
  collabctl session watch
  collabctl session watch --metrics-addr 127.0.0.1:9464`,
	Args: usageArgs(cobra.NoArgs),
	RunE: protected(runSessionWatch),
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStatusCmd, sessionRefreshCmd, sessionCheckCmd, sessionWatchCmd)

	sessionStatusCmd.Flags().Bool("json", false, "output as JSON")
	sessionWatchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
}

type sessionStatus struct {
	State     string           `json:"state"`
	Identity  *domain.Identity `json:"identity,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	Store     string           `json:"store"`
}

func runSessionStatus(cmd *cobra.Command, args []string, a *app) error {
	snap := a.session.Snapshot()
	status := sessionStatus{State: snap.State.String(), Identity: snap.Identity, Store: cfg.Session.Store}
	if snap.Authenticated() {
		exp := snap.ExpiresAt
		status.ExpiresAt = &exp
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	a.printer.Header("Session")
	a.printer.Field("state", a.printer.StatusBadge(status.State))
	a.printer.Field("store", status.Store)
	if snap.Authenticated() {
		a.printer.Field("user", snap.Identity.Email)
		a.printer.Field("role", string(snap.Identity.Role))
		a.printer.Field("expires", snap.ExpiresAt.Local().Format(time.RFC3339))
	}
	a.printer.PrintHints("session status")
	return nil
}

func runSessionRefresh(cmd *cobra.Command, args []string, a *app) error {
	if err := a.session.Refresh(cmd.Context()); err != nil {
		return err
	}
	snap := a.session.Snapshot()
	a.printer.Success("Session refreshed, valid until %s", snap.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func runSessionCheck(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	if err := a.session.CheckExpiry(cmd.Context()); err != nil {
		return err
	}
	snap := a.session.Snapshot()
	if !snap.Authenticated() {
		return output.FromError(domain.ErrNotAuthenticated)
	}
	a.printer.Success("Session valid until %s", snap.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func runSessionWatch(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	updates, unsubscribe := a.session.Subscribe()
	defer unsubscribe()

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	a.printer.Info("Watching session of %s every %s (Ctrl+C to stop)", id.Email, cfg.Session.CheckInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.session.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case snap := <-updates:
				a.printer.Print("%s %s", time.Now().Format(time.TimeOnly), a.printer.StatusBadge(snap.State.String()))
				if snap.State == session.StateUnauthenticated {
					a.printer.Warning("Session ended; run 'collabctl login' to start a new one")
					return output.FromError(domain.ErrNotAuthenticated)
				}
			}
		}
	})
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("serving metrics", "address", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}
