package main

import (
	"context"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/ency/pkg/authstate"
	"github.com/dmitrymomot/ency/pkg/config"
	"github.com/dmitrymomot/ency/pkg/httpserver"
	"github.com/dmitrymomot/ency/pkg/identity/emulator"
)

// settleWindow is how long reload waits for the session to stop changing.
const settleWindow = 300 * time.Millisecond

func newSignUpCmd(a *app) *cobra.Command {
	var in authstate.SignUpInput

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account with email and password",
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&in.ConfirmPassword, "confirm-password", "", "password confirmation")

	cmd.RunE = a.withCore(func(ctx context.Context, cmd *cobra.Command) error {
		if in.Password == "" {
			p, err := a.prompt(cmd, "Password: ")
			if err != nil {
				return err
			}
			in.Password = p
			if in.ConfirmPassword, err = a.prompt(cmd, "Confirm password: "); err != nil {
				return err
			}
		}
		u, err := a.core.SignUp(ctx, in)
		if err != nil {
			return err
		}
		a.printUser(cmd, u)
		if !u.IsVerified {
			cmd.PrintErrln("A verification email has been sent. Run `ency reload` after confirming it.")
		}
		return nil
	})
	return cmd
}

func newSignInCmd(a *app) *cobra.Command {
	var in authstate.SignInInput

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (prompted when empty)")

	cmd.RunE = a.withCore(func(ctx context.Context, cmd *cobra.Command) error {
		if in.Password == "" {
			p, err := a.prompt(cmd, "Password: ")
			if err != nil {
				return err
			}
			in.Password = p
		}
		u, err := a.core.SignIn(ctx, in)
		if err != nil {
			return err
		}
		a.printUser(cmd, u)
		return nil
	})
	return cmd
}

func newSignInGoogleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signin-google",
		Short: "Sign in with a Google account in the browser",
	}
	cmd.RunE = a.withCore(func(ctx context.Context, cmd *cobra.Command) error {
		u, err := a.core.SignInWithFederatedIdentity(ctx)
		if err != nil {
			return err
		}
		a.printUser(cmd, u)
		return nil
	})
	return cmd
}

func newSignOutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signout",
		Short: "End the current session",
	}
	cmd.RunE = a.withCore(func(ctx context.Context, cmd *cobra.Command) error {
		if err := a.core.SignOut(ctx); err != nil {
			return err
		}
		a.printState(cmd, a.core.State())
		return nil
	})
	return cmd
}

func newWhoAmICmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the restored session",
	}
	cmd.RunE = a.withCore(func(_ context.Context, cmd *cobra.Command) error {
		a.printState(cmd, a.core.State())
		return nil
	})
	return cmd
}

func newReloadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Re-read the account, e.g. after confirming the email",
	}
	cmd.RunE = a.withCore(func(ctx context.Context, cmd *cobra.Command) error {
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		sub := a.core.Subscribe(subCtx)

		if err := a.core.Reload(ctx); err != nil {
			return err
		}

		state := a.core.State()
		timer := time.NewTimer(settleWindow)
		defer timer.Stop()
		for {
			select {
			case msg, ok := <-sub.Receive(subCtx):
				if !ok {
					a.printState(cmd, state)
					return nil
				}
				state = msg.Data
				timer.Reset(settleWindow)
			case <-timer.C:
				a.printState(cmd, state)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print every session change until interrupted",
	}
	cmd.RunE = a.withCore(func(ctx context.Context, cmd *cobra.Command) error {
		sub := a.core.Subscribe(ctx)
		for msg := range sub.Receive(ctx) {
			a.printState(cmd, msg.Data)
		}
		return nil
	})
	return cmd
}

func newEmulatorCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "emulator",
		Short: "Run the local identity provider emulator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg emulator.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			e, err := emulator.New(cfg, emulator.WithLogger(a.log), emulator.WithRegistry(registry))
			if err != nil {
				return err
			}
			return e.Run(cmd.Context(), httpserver.WithListenHook(func(addr net.Addr) {
				cmd.PrintErrf("emulator listening on %s; use --emulator http://%s\n", addr, addr)
			}))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (env EMULATOR_ADDR)")
	return cmd
}
