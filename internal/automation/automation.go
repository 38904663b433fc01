// Package automation runs an optional user-supplied Lua hook script on
// its own single goroutine, mirroring the teacher's internal/lua runtime
// discipline (work queue + panic recovery) but trimmed to three
// domain hooks instead of a full action/scheduler/event-source module
// set: scene_learned, light_update, entertainment_started.
package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/nilclass/huebridge/internal/config"
	"github.com/nilclass/huebridge/internal/resource"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed.
var ErrRuntimeClosed = fmt.Errorf("automation runtime closed")

// work is one unit of Lua execution.
type work func(L *lua.LState)

// Runtime owns the single Lua VM and the one goroutine allowed to touch
// it (spec.md §5 "no component blocks the store mutex on a channel
// send/VM call"; all hook dispatch is async via the work queue).
type Runtime struct {
	l        *lua.LState
	cfg      *config.AutomationConfig
	logger   zerolog.Logger
	workQueue chan work

	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a Runtime. The Lua state is not populated until LoadScript
// succeeds.
func New(cfg *config.AutomationConfig, logger zerolog.Logger) *Runtime {
	r := &Runtime{
		l:         lua.NewState(),
		cfg:       cfg,
		logger:    logger.With().Str("component", "automation").Logger(),
		workQueue: make(chan work, 64),
		closing:   make(chan struct{}),
	}
	r.registerModules()
	return r
}

// LoadScript loads and executes the configured script, relative to
// configDir when the path isn't absolute and doesn't exist as given.
func (r *Runtime) LoadScript(configDir string) error {
	path := r.cfg.Script
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = filepath.Join(configDir, path)
		}
	}
	r.logger.Info().Str("path", path).Msg("loading automation script")
	if err := r.l.DoFile(path); err != nil {
		return fmt.Errorf("automation: %w", err)
	}
	return nil
}

// Close stops accepting new work and releases the Lua state.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() { close(r.closing) })
	r.l.Close()
}

// Run executes queued hooks on the calling goroutine until ctx is
// cancelled or Close is called. It must run on exactly one goroutine.
func (r *Runtime) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.closing:
			return
		case w := <-r.workQueue:
			r.execute(w)
		}
	}
}

func (r *Runtime) execute(w work) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Msg("automation hook panicked, worker continuing")
		}
	}()
	w(r.l)
}

// enqueue drops work rather than blocking: hook dispatch must never
// stall a store mutation or a back-end adapter's event loop.
func (r *Runtime) enqueue(w work) {
	select {
	case <-r.closing:
		return
	case r.workQueue <- w:
	default:
		r.logger.Warn().Msg("automation work queue full, dropping hook invocation")
	}
}

func (r *Runtime) callGlobal(name string, args ...lua.LValue) work {
	return func(L *lua.LState) {
		fn := L.GetGlobal(name)
		if fn.Type() != lua.LTFunction {
			return
		}
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
			r.logger.Warn().Err(err).Str("hook", name).Msg("automation hook returned an error")
		}
	}
}

// SceneLearned invokes the script's scene_learned(scene_id, room_id)
// hook, if defined, whenever the scene learner finalizes a pending
// recall (internal/scenelearn).
func (r *Runtime) SceneLearned(scene, room resource.Link) {
	r.enqueue(r.callGlobal("scene_learned", lua.LString(scene.String()), lua.LString(room.String())))
}

// LightUpdate invokes the script's light_update(light_id) hook whenever
// a back-end adapter applies an inbound state change to a Light.
func (r *Runtime) LightUpdate(light resource.Link) {
	r.enqueue(r.callGlobal("light_update", lua.LString(light.String())))
}

// EntertainmentStarted invokes the script's
// entertainment_started(config_id) hook whenever a stream begins.
func (r *Runtime) EntertainmentStarted(cfg resource.Link) {
	r.enqueue(r.callGlobal("entertainment_started", lua.LString(cfg.String())))
}

// registerModules preloads the host-facing "log" module the script can
// require(), matching the teacher's per-concern PreloadModule pattern.
func (r *Runtime) registerModules() {
	logger := r.logger
	r.l.PreloadModule("log", func(L *lua.LState) int {
		mod := L.NewTable()
		L.SetField(mod, "debug", L.NewFunction(logFn(logger.Debug)))
		L.SetField(mod, "info", L.NewFunction(logFn(logger.Info)))
		L.SetField(mod, "warn", L.NewFunction(logFn(logger.Warn)))
		L.SetField(mod, "error", L.NewFunction(logFn(logger.Error)))
		L.Push(mod)
		return 1
	})
}

func logFn(event func() *zerolog.Event) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		event().Str("source", "automation").Msg(msg)
		return 0
	}
}
