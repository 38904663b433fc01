// Package app wires together the bridge's resource store, persisted
// state, back-end adapters, entertainment listener, automation hooks,
// and audit ledger, mirroring the teacher's Services container
// (internal/app/services.go: one struct, one NewServices constructor,
// explicit Start/Stop) generalized from one Hue client to an arbitrary
// set of configured back-ends.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nilclass/huebridge/internal/automation"
	"github.com/nilclass/huebridge/internal/backend"
	"github.com/nilclass/huebridge/internal/backend/wled"
	"github.com/nilclass/huebridge/internal/backend/z2m"
	"github.com/nilclass/huebridge/internal/config"
	"github.com/nilclass/huebridge/internal/db"
	"github.com/nilclass/huebridge/internal/ledger"
	"github.com/nilclass/huebridge/internal/manager"
	"github.com/nilclass/huebridge/internal/resource"
	"github.com/nilclass/huebridge/internal/statefile"
)

// storeBacklog bounds how many events a slow subscriber may lag behind
// before Envelope.Lagged is set (spec.md §4.3 "bounded per-subscriber
// backlog").
const storeBacklog = 64

// bridgeHomeSeed is the fixed derivation seed for the one-and-only
// BridgeHome resource: it is a true singleton, so its link never varies
// across boots (spec.md §4.1 forward-declaration exception).
const bridgeHomeSeed = "bridge_home"

// stateSaveInterval is how often the resource graph is flushed to disk
// between explicit shutdown saves, bounding data loss on an unclean exit.
const stateSaveInterval = 30 * time.Second

// Services is the container for every long-lived component this process
// owns.
type Services struct {
	cfg       *config.Config
	configDir string

	DB      *db.DB
	Ledger  *ledger.Ledger
	Store   *resource.Store
	Manager *manager.Manager

	automation *automation.Runtime

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates all services with proper dependency injection. configPath
// is used only to resolve the automation script path relative to the
// config file's directory.
func New(cfg *config.Config, configPath string) (*Services, error) {
	s := &Services{cfg: cfg, configDir: filepath.Dir(configPath)}

	database, err := db.Open(cfg.Database.GetPath())
	if err != nil {
		return nil, fmt.Errorf("app: open database: %w", err)
	}
	s.DB = database
	s.Ledger = ledger.New(database.DB)

	store := resource.NewStore(storeBacklog)
	s.Store = store

	if err := s.restoreState(); err != nil {
		s.DB.Close()
		return nil, err
	}
	store.ResetStreamingState()
	ensureBridgeHome(store)

	adapters := s.buildAdapters()

	if cfg.Automation.IsEnabled() {
		s.automation = automation.New(&cfg.Automation, log.Logger)
		if err := s.automation.LoadScript(s.configDir); err != nil {
			s.DB.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	s.Manager = manager.New(store, adapters, cfg.Entertainment, s.automation, log.Logger)

	return s, nil
}

func (s *Services) restoreState() error {
	doc, err := statefile.Load(s.cfg.State.GetPath())
	if err != nil {
		return fmt.Errorf("app: load state: %w", err)
	}
	if err := statefile.RestoreInto(s.Store, doc); err != nil {
		return fmt.Errorf("app: restore state: %w", err)
	}
	return nil
}

func ensureBridgeHome(store *resource.Store) {
	link := resource.DerivedLink(resource.RTypeBridgeHome, []byte(bridgeHomeSeed))
	if store.Has(link) {
		return
	}
	_ = store.Add(link, resource.BridgeHome{})
}

func (s *Services) buildAdapters() []backend.Adapter {
	adapters := make([]backend.Adapter, 0, len(s.cfg.BackEnds.Z2M)+len(s.cfg.BackEnds.WLED))
	for name, serverCfg := range s.cfg.BackEnds.Z2M {
		adapters = append(adapters, z2m.New(name, serverCfg, s.Store, log.Logger))
	}
	for name, serverCfg := range s.cfg.BackEnds.WLED {
		adapters = append(adapters, wled.New(name, serverCfg, s.Store, log.Logger))
	}
	return adapters
}

// Start launches every background component and returns once they are
// all running. The process keeps running until ctx is cancelled; use
// Stop (or cancel ctx and call Wait) to shut down.
func (s *Services) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.Manager.Run(runCtx)
	}()

	go s.periodicSave(runCtx)

	if s.cfg.Ledger.IsEnabled() {
		go s.retentionSweep(runCtx)
	}

	log.Info().Msg("services started")
	return nil
}

// Wait blocks until every background component has stopped.
func (s *Services) Wait() {
	if s.done != nil {
		<-s.done
	}
}

// Stop signals every background component to shut down and persists the
// resource graph one final time.
func (s *Services) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.Wait()
	if s.automation != nil {
		s.automation.Close()
	}
	if err := s.saveState(); err != nil {
		log.Error().Err(err).Msg("failed to save state on shutdown")
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

func (s *Services) saveState() error {
	doc, err := statefile.FromStore(s.Store, s.loadAuthTokens())
	if err != nil {
		return fmt.Errorf("app: snapshot state: %w", err)
	}
	return statefile.Save(s.cfg.State.GetPath(), doc)
}

// loadAuthTokens preserves whatever tokens are already on disk: the core
// engine never mints or validates them (that is the out-of-scope HTTP
// layer's job), it only round-trips them through the state document.
func (s *Services) loadAuthTokens() map[string]string {
	doc, err := statefile.Load(s.cfg.State.GetPath())
	if err != nil {
		return nil
	}
	return doc.AuthTokens
}

func (s *Services) periodicSave(ctx context.Context) {
	ticker := time.NewTicker(stateSaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.saveState(); err != nil {
				log.Warn().Err(err).Msg("periodic state save failed")
			}
		}
	}
}

func (s *Services) retentionSweep(ctx context.Context) {
	interval := s.cfg.Ledger.GetRetentionInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Ledger.DeleteOlderThan(s.cfg.Ledger.GetRetentionPeriod())
			if err != nil {
				log.Warn().Err(err).Msg("ledger retention sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("ledger retention sweep")
			}
		}
	}
}

