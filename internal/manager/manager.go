// Package manager supervises every long-running task this process owns:
// one goroutine per configured back-end adapter, the entertainment DTLS
// listener, and the automation hook dispatcher that watches the store's
// event streams. It mirrors the teacher's HueService.StartBackground
// pattern (internal/app/hue_service.go: one named goroutine per
// long-lived component, errors logged rather than propagated) scaled up
// to an arbitrary adapter set.
package manager

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nilclass/huebridge/internal/automation"
	"github.com/nilclass/huebridge/internal/backend"
	"github.com/nilclass/huebridge/internal/config"
	"github.com/nilclass/huebridge/internal/entertainment"
	"github.com/nilclass/huebridge/internal/resource"
)

// Manager owns the set of back-end adapters plus the entertainment
// listener and hook dispatcher wired against one resource store.
type Manager struct {
	store      *resource.Store
	adapters   []backend.Adapter
	entCfg     config.EntertainmentConfig
	automation *automation.Runtime
	logger     zerolog.Logger

	wg sync.WaitGroup
}

// New creates a Manager. automationRuntime may be nil when no automation
// script is configured.
func New(store *resource.Store, adapters []backend.Adapter, entCfg config.EntertainmentConfig, automationRuntime *automation.Runtime, logger zerolog.Logger) *Manager {
	return &Manager{
		store:      store,
		adapters:   adapters,
		entCfg:     entCfg,
		automation: automationRuntime,
		logger:     logger.With().Str("component", "manager").Logger(),
	}
}

// Run starts every adapter, the entertainment listener (if enabled), and
// the hook dispatcher, then blocks until ctx is cancelled and every
// goroutine has returned, or for at most shutdownGrace after cancellation;
// goroutines still running then are abandoned.
func (m *Manager) Run(ctx context.Context) {
	const shutdownGrace = 3 * time.Second
	for _, a := range m.adapters {
		a := a
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.logger.Info().Str("adapter", a.Name()).Msg("starting back-end adapter")
			a.Run(ctx)
			m.logger.Info().Str("adapter", a.Name()).Msg("back-end adapter stopped")
		}()
	}

	if m.entCfg.IsEnabled() {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := entertainment.Listen(ctx, m.entCfg.GetListen(), m.entCfg.PSKIdentity, m.entCfg.PSKKey, m.handleFrame, m.logger); err != nil {
				m.logger.Error().Err(err).Msg("entertainment listener exited")
			}
		}()
	}

	if m.automation != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.automation.Run(ctx)
		}()
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.dispatchHooks(ctx)
	}()

	<-ctx.Done()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		m.logger.Warn().Dur("grace", shutdownGrace).Msg("tasks still running after shutdown grace period; abandoning them")
	}
}

// handleFrame resolves a v1 or v2 entertainment frame to its targeted
// EntertainmentConfiguration and broadcasts the translated intent. A v1
// stream carries no area id and is dropped: v1 addresses lights directly
// by an id namespace no configured back-end understands, so v1 frames are
// accepted by the listener but never routed.
func (m *Manager) handleFrame(f entertainment.Frame) {
	if f.Area == "" {
		m.logger.Debug().Msg("dropping v1 entertainment frame: no area to resolve")
		return
	}
	areaID, err := uuid.Parse(f.Area)
	if err != nil {
		m.logger.Warn().Err(err).Str("area", f.Area).Msg("bad entertainment area uuid")
		return
	}
	target := resource.Link{Type: resource.RTypeEntertainmentConfiguration, ID: areaID}
	if !m.store.Has(target) {
		m.logger.Debug().Str("area", f.Area).Msg("entertainment frame for unknown configuration")
		return
	}
	m.store.PublishBackendRequest(resource.BackendRequest{
		Kind:               resource.BackendRequestEntertainmentFrame,
		Target:             target,
		EntertainmentFrame: entertainment.ToFrameChannels(f),
	})
}

// dispatchHooks watches both event streams and invokes the configured
// automation hooks; it is a no-op beyond the subscription drain when no
// automation runtime is configured, so back-end adapters are never
// blocked waiting for a subscriber that doesn't exist.
func (m *Manager) dispatchHooks(ctx context.Context) {
	hueSub := m.store.HueEventStream()
	defer hueSub.Unsubscribe()
	backendSub := m.store.BackendEventStream()
	defer backendSub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-hueSub.C():
			if !ok {
				return
			}
			m.handleHueEvent(evt.Value)
		case evt, ok := <-backendSub.C():
			if !ok {
				return
			}
			m.handleBackendEvent(evt.Value)
		}
	}
}

func (m *Manager) handleHueEvent(evt resource.HueEvent) {
	if m.automation == nil || evt.Kind != resource.EventUpdate {
		return
	}
	switch evt.Link.Type {
	case resource.RTypeLight:
		m.automation.LightUpdate(evt.Link)
	case resource.RTypeScene:
		update, ok := evt.Data.(resource.SceneUpdate)
		if !ok || update.Actions == nil {
			return
		}
		scene, err := resource.Get[resource.Scene](m.store, evt.Link)
		if err != nil {
			return
		}
		m.automation.SceneLearned(evt.Link, scene.Group)
	}
}

func (m *Manager) handleBackendEvent(req resource.BackendRequest) {
	if m.automation == nil || req.Kind != resource.BackendRequestEntertainmentStart {
		return
	}
	m.automation.EntertainmentStarted(req.Target)
}

// DecodePSK reports whether the configured entertainment PSK key is
// well-formed hex. Run does not call it: a malformed key surfaces only as
// the error entertainment.Listen returns when the listener starts.
func DecodePSK(key string) error {
	if _, err := hex.DecodeString(key); err != nil {
		return fmt.Errorf("entertainment psk_key: %w", err)
	}
	return nil
}
