package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tuyactl/internal/cli"
	"github.com/dokzlo13/tuyactl/internal/config"
	"github.com/dokzlo13/tuyactl/internal/ledger"
	"github.com/dokzlo13/tuyactl/internal/state"
	"github.com/dokzlo13/tuyactl/internal/storage"
)

// App is the main application container that manages all services and their lifecycle.
type App struct {
	cfg      *config.Config
	services *Services
}

// New creates a new App instance with all services initialized but not connected.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// CLIEnv builds the command environment backed by the app's services.
func (a *App) CLIEnv(out, errOut io.Writer) cli.Env {
	s := a.services
	return cli.Env{
		Out:        out,
		Err:        errOut,
		Controller: s.Devices.Controller,
		Presets:    s.Presets,
		History: func(device string, limit int) ([]*ledger.Entry, error) {
			if device == "" {
				return s.Ledger.Recent(limit)
			}
			cfg, err := s.Registry.Resolve(device)
			if err != nil {
				return nil, err
			}
			return s.Ledger.GetByDevice(cfg.Name, limit)
		},
		Batch: s.Ledger.GetByBatch,
		LastStates: func() ([]storage.Item[state.State], error) {
			return s.States.List()
		},
		LastState: func(device string) (*storage.Item[state.State], error) {
			cfg, err := s.Registry.Resolve(device)
			if err != nil {
				return nil, err
			}
			return s.States.Get(cfg.Name)
		},
	}
}

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	return cli.Run(ctx, args, a.CLIEnv(os.Stdout, os.Stderr))
}

// ClearDeviceStates clears the cached last-known device states.
func (a *App) ClearDeviceStates() error {
	if a.services != nil {
		return a.services.ClearState()
	}
	return nil
}

// Close releases the broker connection and the database.
func (a *App) Close() {
	if a.services != nil {
		a.services.Close()
	}
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
