package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tuyactl/internal/config"
	"github.com/dokzlo13/tuyactl/internal/db"
	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/ledger"
	"github.com/dokzlo13/tuyactl/internal/preset"
	"github.com/dokzlo13/tuyactl/internal/state"
	"github.com/dokzlo13/tuyactl/internal/storage"
)

// deviceStateKind is the storage kind for last-known device states.
const deviceStateKind = "device"

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger

	// Last-known device states
	Store  *storage.Store
	States *storage.TypedStore[state.State]

	Registry *devices.Registry
	Presets  *preset.Store

	Devices *DeviceService
}

// NewServices creates all services with proper dependency injection.
// Nothing here touches the network; the broker is dialed on first use.
func NewServices(cfg *config.Config) (*Services, error) {
	registry, err := devices.NewRegistry(cfg.Devices)
	if err != nil {
		return nil, err
	}
	if registry.Len() == 0 {
		log.Warn().Msg("No devices configured")
	}

	s := &Services{
		cfg:      cfg,
		Registry: registry,
		Presets:  preset.NewStore(cfg.Presets.Dir),
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)
	if n, err := s.Ledger.DeleteOlderThan(cfg.History.Retention()); err != nil {
		log.Warn().Err(err).Msg("Failed to prune command history")
	} else if n > 0 {
		log.Debug().Int64("deleted", n).Msg("Pruned command history")
	}

	s.Store = storage.NewStore(database.DB)
	s.States = storage.NewTypedStore[state.State](s.Store, deviceStateKind)
	s.pruneStates()

	s.Devices = NewDeviceService(cfg, registry, s.Presets, s.Ledger, s.States)
	return s, nil
}

// pruneStates drops cached states of devices no longer configured.
func (s *Services) pruneStates() {
	items, err := s.States.List()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list cached device states")
		return
	}
	for _, item := range items {
		if _, ok := s.Registry.Get(item.ID); ok {
			continue
		}
		if err := s.States.Delete(item.ID); err != nil {
			log.Warn().Err(err).Str("device", item.ID).Msg("Failed to drop cached state")
			continue
		}
		log.Debug().Str("device", item.ID).Msg("Dropped cached state of removed device")
	}
}

// ClearState removes all cached device states.
func (s *Services) ClearState() error {
	return s.States.Clear()
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Devices != nil {
		s.Devices.Close()
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
