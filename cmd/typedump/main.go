package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	wasmtypes "github.com/wippyai/wasm-types"
	"github.com/wippyai/wasm-types/engine"
	"github.com/wippyai/wasm-types/wasm"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to wasm module file")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: typedump -wasm <file.wasm>")
		fmt.Fprintln(os.Stderr, "       typedump -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*wasmFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile string) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	groups, err := wasm.DecodeModuleTypes(data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	eng, err := engine.New(ctx)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer eng.Close(ctx)

	set, err := eng.RegisterTypes(data)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	defer set.Close()

	fmt.Printf("Module: %s\n", wasmFile)
	fmt.Printf("Types: %d\n", set.Len())
	fmt.Printf("Recursion groups: %d\n", set.GroupLen())

	local := wasmtypes.ModuleTypeIndex(0)
	for gi, g := range groups {
		fmt.Printf("\nGroup %d (%d members):\n", gi, len(g.Types))
		for range g.Types {
			shared, _ := set.SharedIndex(local)
			def, ok := eng.Types().Borrow(shared)
			if !ok {
				return fmt.Errorf("type %d not registered", local)
			}
			fmt.Printf("  [%d -> %d] %s\n", local, shared, def)
			local++
		}
	}
	return nil
}
