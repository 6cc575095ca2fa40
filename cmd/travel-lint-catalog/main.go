package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goliatone/go-travel-admin/pkg/entity"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [paths...]\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(flag.CommandLine.Output(), "\nLint OpenAPI documents for entity extensions the admin client does not understand.\nWithout paths the embedded travel API document is checked.\n")
	}
	flag.Parse()

	ctx := context.Background()
	failed := false

	paths := flag.Args()
	if len(paths) == 0 {
		failed = report(ctx, "travel-api.yaml", entity.TravelAPIDocument())
	}
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lint %s: %v\n", path, err)
			os.Exit(1)
		}
		if report(ctx, path, raw) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// report prints the violations of one document and the entities it
// defines. It returns true when the document has problems.
func report(ctx context.Context, name string, raw []byte) bool {
	violations, err := entity.Lint(ctx, raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lint %s: %v\n", name, err)
		return true
	}
	for _, v := range violations {
		fmt.Fprintf(os.Stderr, "%s: %s\n", name, v)
	}

	catalog, err := entity.LoadCatalog(ctx, raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return true
	}
	for _, ent := range catalog.Entities() {
		fmt.Printf("%s: %s (%d fields, %d relations)\n", name, ent.Name, len(ent.Fields), len(ent.Relations))
	}
	return len(violations) > 0
}
