// Command hyperprocessgen is the go:generate-invoked CLI wrapping
// builder.Load, builder.Validate, and builder.Generate: point it at a
// package containing a `//hyperprocess:`-annotated state type and it
// writes wire_gen.go alongside the source.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperware-ai/hyperprocess-core/builder"
)

func main() {
	dir := flag.String("dir", ".", "directory containing the annotated state type")
	stateType := flag.String("type", "", "name of the state type carrying //hyperprocess: directives")
	out := flag.String("out", "wire_gen.go", "output file name, written inside -dir")
	flag.Parse()

	if *stateType == "" {
		fmt.Fprintln(os.Stderr, "hyperprocessgen: -type is required")
		os.Exit(2)
	}

	if err := run(*dir, *stateType, *out); err != nil {
		fmt.Fprintln(os.Stderr, "hyperprocessgen:", err)
		os.Exit(1)
	}
}

func run(dir, stateType, out string) error {
	pkg, err := builder.Load(dir, stateType)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	table, err := builder.Validate(pkg)
	if err != nil {
		return err
	}

	src, err := builder.Generate(pkg, table, stateType)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, out), src, 0o644)
}
