// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"codavert-workers/pkg/registry"
)

func main() {
	activity := flag.String("activity", "", "Activity ID from registry (e.g., allocate-document-number)")
	outputDir := flag.String("output", "./internal/workers/", "Root directory for generated workers")
	registryPath := flag.String("registry", "", "Path to a registry JSON file (defaults to the embedded registry)")
	force := flag.Bool("force", false, "Overwrite files that already exist")
	flag.Parse()

	if *activity == "" {
		fmt.Println("Usage: worker-generator --activity <id> [--output <dir>] [--registry <path>] [--force]")
		fmt.Println("\nExample:")
		fmt.Println("  go run ./cmd/tools/worker-generator --activity allocate-document-number")
		os.Exit(1)
	}

	reg, err := loadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry: %v\n", err)
		os.Exit(1)
	}

	var found *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == *activity {
			found = &reg.Activities[i]
			break
		}
	}
	if found == nil {
		fmt.Printf("Activity '%s' not found in registry\n", *activity)
		os.Exit(1)
	}

	files, err := Generate(found)
	if err != nil {
		fmt.Printf("Error generating worker: %v\n", err)
		os.Exit(1)
	}

	dir, written, err := writeFiles(*outputDir, found, files, *force)
	if err != nil {
		fmt.Printf("Error writing worker: %v\n", err)
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Printf("✓ Generated %s\n", path)
	}

	fmt.Printf("\n✅ Worker scaffold generated at: %s\n", dir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Replace the Service interface with the engine methods the worker drives\n")
	fmt.Printf("  2. Write handler_test.go\n")
	fmt.Printf("  3. Register the worker in cmd/worker-manager/main.go\n")
	fmt.Printf("  4. Add a workers.%s entry to configs/config.yaml\n", found.ID)
}

func loadRegistry(path string) (*registry.ActivityRegistry, error) {
	if path == "" {
		return registry.Default()
	}
	return registry.LoadRegistry(path)
}
