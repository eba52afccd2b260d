package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-types/errors"
	"github.com/wippyai/wasm-types/registry"
	"github.com/wippyai/wasm-types/wasm"
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB
	// each). 0 means the wazero default.
	MemoryLimitPages uint32
}

// Engine owns the machinery shared by every module it loads: a wazero
// runtime for compiled code and the type registry that canonicalizes type
// definitions across modules.
type Engine struct {
	runtime wazero.Runtime
	types   *registry.Registry
}

// New creates an engine with default configuration.
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	return &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		types:   registry.NewRegistry(),
	}, nil
}

// Types returns the engine's type registry.
func (e *Engine) Types() *registry.Registry {
	return e.types
}

// LoadModule compiles a WebAssembly binary and registers its type section.
// The returned module owns both the compiled code and the registered types;
// close it to release them.
func (e *Engine) LoadModule(ctx context.Context, data []byte) (*Module, error) {
	groups, err := wasm.DecodeModuleTypes(data)
	if err != nil {
		return nil, errors.ParseFailed("type section", err)
	}

	compiled, err := e.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}

	set := e.types.RegisterModuleTypes(groups)
	Logger().Debug("module loaded",
		zap.Int("types", set.Len()),
		zap.Int("groups", set.GroupLen()))

	return &Module{engine: e, compiled: compiled, types: set}, nil
}

// RegisterTypes registers a binary module's type section without compiling
// it. Tooling that only needs indices uses this, as do modules carrying GC
// types the execution runtime cannot compile yet.
func (e *Engine) RegisterTypes(data []byte) (*registry.ModuleTypeSet, error) {
	groups, err := wasm.DecodeModuleTypes(data)
	if err != nil {
		return nil, errors.ParseFailed("type section", err)
	}
	return e.types.RegisterModuleTypes(groups), nil
}

// Close releases the engine's runtime. Modules loaded from this engine must
// be closed first.
func (e *Engine) Close(ctx context.Context) error {
	if !e.types.Empty() {
		Logger().Warn("engine closed with registered types",
			zap.Int("types", e.types.Len()),
			zap.Int("groups", e.types.GroupCount()))
	}
	return e.runtime.Close(ctx)
}
