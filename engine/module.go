package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-types/errors"
	"github.com/wippyai/wasm-types/registry"
)

// Module is a loaded WebAssembly module: compiled code plus the owning set
// for its registered types.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
	types    *registry.ModuleTypeSet
}

// Types returns the owning set for the module's registered types.
func (m *Module) Types() *registry.ModuleTypeSet {
	return m.types
}

// Compiled returns the wazero compiled module for instantiation.
func (m *Module) Compiled() wazero.CompiledModule {
	return m.compiled
}

// Instantiate creates a running instance of the module. The instance must be
// closed before the module.
func (m *Module) Instantiate(ctx context.Context) (api.Module, error) {
	inst, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig())
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	return inst, nil
}

// Close releases the module's registered types and its compiled code.
func (m *Module) Close(ctx context.Context) error {
	m.types.Close()
	return m.compiled.Close(ctx)
}
