// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"codavert-workers/pkg/registry"

	"github.com/xeipuuv/gojsonschema"
)

const defaultPath = "pkg/registry/activities.json"

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listPath := listCmd.String("path", defaultPath, "Path to registry file")
	listCategory := listCmd.String("category", "", "Only list activities in this category")

	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	updatePath := updateCmd.String("path", defaultPath, "Path to registry file")
	id := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, timeout, retries, description)")
	value := updateCmd.String("value", "", "New value for the field")

	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validatePath := validateCmd.String("path", defaultPath, "Path to registry file")

	var err error
	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		err = listActivities(*listPath, *listCategory)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *id == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		err = updateActivity(*updatePath, *id, *field, *value)
		if err == nil {
			fmt.Printf("Updated activity %s, field %s to %s\n", *id, *field, *value)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		err = validateRegistry(*validatePath)

	default:
		help()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func listActivities(path, category string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	activities := reg.Activities
	if category != "" {
		activities = reg.ByCategory(category)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTASK TYPE\tCATEGORY\tSTATUS\tTIMEOUT")
	for _, a := range activities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.TaskType, a.Category, a.ImplementationStatus, a.Timeout)
	}
	return w.Flush()
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var activity *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			activity = &reg.Activities[i]
			break
		}
	}
	if activity == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		activity.ImplementationStatus = value
	case "version":
		activity.Version = value
	case "description":
		activity.Description = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		activity.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return reg.Save(path)
}

// validateRegistry checks uniqueness and that every schema compiles, since
// workers validate job variables against the input schemas at runtime.
func validateRegistry(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	for _, a := range reg.Activities {
		if a.DisplayName == "" || a.Category == "" {
			return fmt.Errorf("activity %s: displayName and category are required", a.ID)
		}
		if _, err := a.TimeoutDuration(); err != nil {
			return err
		}
		for name, schema := range map[string]map[string]interface{}{"input": a.InputSchema, "output": a.OutputSchema} {
			if len(schema) == 0 {
				continue
			}
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema)); err != nil {
				return fmt.Errorf("activity %s: %s schema does not compile: %w", a.ID, name, err)
			}
		}
	}

	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  list      Print every activity in the registry
  update    Update an existing activity's field
  validate  Validate the registry file and compile its schemas
  help      Show this help message

Examples:
  registry-updater list -category recruitment
  registry-updater update -id accept-offer -field timeout -value 20s
  registry-updater validate -path pkg/registry/activities.json

Use 'registry-updater <command> -h' for more information about a command.
` + "\n")
}
