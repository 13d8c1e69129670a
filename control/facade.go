// File: control/facade.go
// Author: momentics <momentics@gmail.com>
//
// Facade combines ConfigStore, MetricsRegistry, and DebugProbes behind the
// api.Control/api.Debug interfaces, so callers (cmd/corealloctl's serve
// subcommand) can depend on one small surface instead of three structs.

package control

import "github.com/momentics/hioload-ws/api"

// Facade is the single control-plane object a process constructs at startup.
type Facade struct {
	cfg     *ConfigStore
	metrics *MetricsRegistry
	probes  *DebugProbes
}

// NewFacade constructs a Facade with platform debug probes pre-registered.
func NewFacade() *Facade {
	f := &Facade{
		cfg:     NewConfigStore(),
		metrics: NewMetricsRegistry(),
		probes:  NewDebugProbes(),
	}
	RegisterPlatformProbes(f.probes)
	return f
}

// GetConfig implements api.Control.
func (f *Facade) GetConfig() map[string]any { return f.cfg.GetSnapshot() }

// SetConfig implements api.Control.
func (f *Facade) SetConfig(cfg map[string]any) error {
	f.cfg.SetConfig(cfg)
	return nil
}

// Stats implements api.Control.
func (f *Facade) Stats() map[string]any { return f.metrics.GetSnapshot() }

// OnReload implements api.Control.
func (f *Facade) OnReload(fn func()) { f.cfg.OnReload(fn) }

// RegisterDebugProbe implements api.Control.
func (f *Facade) RegisterDebugProbe(name string, fn func() any) { f.probes.RegisterProbe(name, fn) }

// DumpState implements api.Debug.
func (f *Facade) DumpState() map[string]any { return f.probes.DumpState() }

// RegisterProbe implements api.Debug.
func (f *Facade) RegisterProbe(name string, fn func() any) { f.probes.RegisterProbe(name, fn) }

// SetMetric publishes a named metric value.
func (f *Facade) SetMetric(key string, value any) { f.metrics.Set(key, value) }

var _ api.Control = (*Facade)(nil)
var _ api.Debug = (*Facade)(nil)
