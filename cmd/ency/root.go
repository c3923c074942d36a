package main

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/ency/pkg/authstate"
	"github.com/dmitrymomot/ency/pkg/clientip"
	"github.com/dmitrymomot/ency/pkg/identity/federated"
	"github.com/dmitrymomot/ency/pkg/identity/toolkit"
	"github.com/dmitrymomot/ency/pkg/logger"
	"github.com/dmitrymomot/ency/pkg/requestid"
)

// app carries the wiring shared by the session commands.
type app struct {
	cfg      appConfig
	log      *slog.Logger
	out      string
	emulator string
	stdin    *bufio.Reader

	client     *toolkit.Client
	core       *authstate.Core
	closeStore func()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "ency",
		Short:         "Sign in to ency from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if a.emulator != "" {
				cfg.identity = cfg.identity.ForEmulator(a.emulator)
			}
			a.cfg = cfg
			a.log = logger.New(
				logger.WithEnvironment(cfg.profile.Env, "ency"),
				logger.WithLevelName(cfg.profile.LogLevel),
				logger.WithOutput(cmd.ErrOrStderr()),
				logger.WithContextExtractors(requestid.LoggerExtractor(), clientip.LoggerExtractor()),
			)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.out, "out", "text", "output format: text|json")
	root.PersistentFlags().StringVar(&a.emulator, "emulator", os.Getenv("IDENTITY_EMULATOR_HOST"),
		"emulator origin, e.g. http://127.0.0.1:9099 (env IDENTITY_EMULATOR_HOST)")

	root.AddCommand(
		newSignUpCmd(a),
		newSignInCmd(a),
		newSignInGoogleCmd(a),
		newSignOutCmd(a),
		newWhoAmICmd(a),
		newReloadCmd(a),
		newWatchCmd(a),
		newEmulatorCmd(a),
	)
	return root
}

// open connects the profile store, builds the provider client and the core,
// and waits for the stored session to be restored.
func (a *app) open(ctx context.Context) error {
	store, closeStore, err := openStore(ctx, a.cfg.profile, a.log)
	if err != nil {
		return err
	}
	a.closeStore = closeStore

	flow := federated.NewGoogleLoopback(a.cfg.google,
		federated.WithOpener(federated.BrowserOpener(os.Stderr)),
		federated.WithLogger(a.log),
	)
	a.client = toolkit.New(a.cfg.identity,
		toolkit.WithFederatedFlow(flow),
		toolkit.WithLogger(a.log),
	)
	a.core = authstate.New(a.client, store, authstate.WithLogger(a.log))

	return a.core.WaitReady(ctx)
}

func (a *app) close() {
	if a.core != nil {
		_ = a.core.Close()
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.closeStore != nil {
		a.closeStore()
	}
}

// withCore runs fn against an opened core and releases it afterwards.
func (a *app) withCore(fn func(ctx context.Context, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := a.open(ctx); err != nil {
			a.close()
			return err
		}
		defer a.close()
		return fn(ctx, cmd)
	}
}
