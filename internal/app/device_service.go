package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tuyactl/internal/config"
	"github.com/dokzlo13/tuyactl/internal/control"
	"github.com/dokzlo13/tuyactl/internal/devices"
	"github.com/dokzlo13/tuyactl/internal/ledger"
	"github.com/dokzlo13/tuyactl/internal/preset"
	"github.com/dokzlo13/tuyactl/internal/state"
	"github.com/dokzlo13/tuyactl/internal/storage"
	"github.com/dokzlo13/tuyactl/internal/transport/mqtt"
)

// DeviceService owns the broker connection and the controller built on it.
type DeviceService struct {
	cfg      *config.Config
	registry *devices.Registry
	presets  *preset.Store
	ledger   *ledger.Ledger
	states   *storage.TypedStore[state.State]

	mu     sync.Mutex
	client *mqtt.Client
	ctrl   *control.Controller
}

// NewDeviceService creates the service without connecting.
func NewDeviceService(cfg *config.Config, registry *devices.Registry, presets *preset.Store,
	l *ledger.Ledger, states *storage.TypedStore[state.State],
) *DeviceService {
	return &DeviceService{
		cfg:      cfg,
		registry: registry,
		presets:  presets,
		ledger:   l,
		states:   states,
	}
}

// Controller connects to the broker on first call and returns the shared
// controller. A failed connection is retried on the next call.
func (s *DeviceService) Controller(ctx context.Context) (*control.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl != nil {
		return s.ctrl, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := s.cfg.MQTT
	client, err := mqtt.Connect(mqtt.Options{
		Broker:   m.Broker,
		ClientID: m.ClientID,
		Username: m.Username,
		Password: m.Password,
		QoS:      byte(m.QoS),
		Timeout:  m.Timeout.Duration(),
	})
	if err != nil {
		return nil, err
	}

	dialer := mqtt.NewDialer(client, m.TopicPrefix, m.Timeout.Duration())
	ctrl := control.New(s.registry, dialer, s.presets, control.Options{
		ApplyPlugs: s.cfg.Presets.ApplyPlugsEnabled(),
		RateLimit:  s.cfg.Broadcast.RateLimitRPS,
		Source:     "cli",
	})
	ctrl.SetHistory(s.ledger)
	ctrl.SetStateCache(s.states)

	s.client = client
	s.ctrl = ctrl
	log.Debug().Str("broker", m.Broker).Int("devices", s.registry.Len()).Msg("Device controller ready")
	return ctrl, nil
}

// Close disconnects from the broker if connected.
func (s *DeviceService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to disconnect from broker")
		}
		s.client = nil
		s.ctrl = nil
	}
}
