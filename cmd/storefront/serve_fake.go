package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/maison-storefront/internal/fakeapi"
	"github.com/angelmondragon/maison-storefront/pkg/enums"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
	"github.com/spf13/cobra"
)

func parseShape(value string) (fakeapi.Shape, error) {
	switch value {
	case "nested":
		return fakeapi.ShapeNested, nil
	case "flat":
		return fakeapi.ShapeFlat, nil
	}
	return 0, fmt.Errorf("unknown shape %q, want nested or flat", value)
}

func newServeFakeCmd() *cobra.Command {
	var (
		addr      string
		shape     string
		demoUser  string
		demoPass  string
		demoRole  string
		logLevel  string
		logFormat string
	)
	cmd := &cobra.Command{
		Use:   "serve-fake",
		Short: "Run an in-memory storefront API for local use",
		Args:  cobra.NoArgs,
		// the fake backend needs neither config nor a local store
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			logg := logger.New(logger.Options{
				ServiceName: "fakeapi",
				Level:       logger.ParseLevel(logLevel),
				Format:      logFormat,
				Output:      cmd.ErrOrStderr(),
			})
			parsed, err := parseShape(shape)
			if err != nil {
				return err
			}
			fake := fakeapi.New(fakeapi.Options{Shape: parsed, Logger: logg})
			if demoUser != "" {
				role, err := enums.ParseRole(demoRole)
				if err != nil {
					return err
				}
				if err := fake.AddAccount(demoUser, demoUser+"@example.com", demoPass, role); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = logg.WithFields(ctx, map[string]any{"addr": addr, "shape": shape})

			server := &http.Server{
				Addr:              addr,
				Handler:           fake.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				logg.Info(ctx, "starting fake storefront api")
				errc <- server.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					logg.Error(ctx, "fake storefront api failed", err)
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			logg.Info(ctx, "fake storefront api stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&shape, "shape", "nested", "cart response shape: nested or flat")
	cmd.Flags().StringVar(&demoUser, "demo-user", "demo", "seed an account with this username (empty to skip)")
	cmd.Flags().StringVar(&demoPass, "demo-password", "demo1234", "password of the seeded account")
	cmd.Flags().StringVar(&demoRole, "demo-role", "customer", "role of the seeded account")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	cmd.Flags().StringVar(&logFormat, "log-format", "console", "json or console")
	return cmd
}
