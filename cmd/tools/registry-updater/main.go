// cmd/tools/registry-updater/main.go
//
// registry-updater maintains configs/activity-registry.json, the catalog of
// onboarding activities the worker manager serves. The validate subcommand is
// run in CI to catch malformed entries before they reach a deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cohort-workers/internal/common/validation"
	"cohort-workers/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "add":
		err = runAdd(os.Args[2:])
	case "update":
		err = runUpdate(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "help":
		usage()
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "registry-updater: %v\n", err)
		os.Exit(1)
	}
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Registry file")
	id := fs.String("id", "", "Activity ID (e.g. analyze-responses)")
	displayName := fs.String("displayName", "", "Human-readable name")
	description := fs.String("description", "", "What the activity does")
	category := fs.String("category", "", "Category (e.g. onboarding)")
	taskType := fs.String("taskType", "", "Zeebe task type the worker subscribes to")
	version := fs.String("version", "1.0.0", "Activity version")
	implStatus := fs.String("status", "planned", "Implementation status (planned, in-progress, completed, verified)")
	fs.Parse(args)

	if *id == "" || *displayName == "" || *description == "" || *category == "" || *taskType == "" {
		fs.Usage()
		return fmt.Errorf("id, displayName, description, category, and taskType are required")
	}
	if err := validation.ValidateTaskTypeNaming(*taskType); err != nil {
		return err
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("load registry: %w", err)
		}
		reg = &registry.ActivityRegistry{
			Version:     "1.0.0",
			LastUpdated: time.Now().Format(time.RFC3339),
			Activities:  []registry.Activity{},
		}
	}

	if reg.FindByID(*id) != nil {
		return fmt.Errorf("activity %s already exists", *id)
	}

	reg.Activities = append(reg.Activities, registry.Activity{
		ID:                   *id,
		DisplayName:          *displayName,
		Description:          *description,
		Category:             *category,
		Version:              *version,
		TaskType:             *taskType,
		ImplementationStatus: *implStatus,
		InputSchema:          map[string]interface{}{},
		OutputSchema:         map[string]interface{}{},
		ErrorCodes:           []string{},
		Timeout:              "10s",
		Workflows:            []string{},
		Tags:                 []string{},
	})
	reg.LastUpdated = time.Now().Format(time.RFC3339)

	if err := saveRegistry(reg, *path); err != nil {
		return err
	}
	fmt.Printf("Added activity: %s\n", *id)
	return nil
}

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Registry file")
	id := fs.String("id", "", "Activity ID to update")
	field := fs.String("field", "", "Field to update")
	value := fs.String("value", "", "New value")
	fs.Parse(args)

	if *id == "" || *field == "" || *value == "" {
		fs.Usage()
		return fmt.Errorf("id, field, and value are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	activity := reg.FindByID(*id)
	if activity == nil {
		return fmt.Errorf("activity %s not found", *id)
	}

	switch *field {
	case "status":
		activity.ImplementationStatus = *value
	case "version":
		activity.Version = *value
	case "displayName":
		activity.DisplayName = *value
	case "description":
		activity.Description = *value
	case "category":
		activity.Category = *value
	case "taskType":
		if err := validation.ValidateTaskTypeNaming(*value); err != nil {
			return err
		}
		activity.TaskType = *value
	case "timeout":
		activity.Timeout = *value
	case "retries":
		retries, err := strconv.Atoi(*value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", *field)
	}

	reg.LastUpdated = time.Now().Format(time.RFC3339)
	if err := saveRegistry(reg, *path); err != nil {
		return err
	}
	fmt.Printf("Updated activity %s: %s = %s\n", *id, *field, *value)
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Registry file")
	fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	seen := make(map[string]bool)
	for _, activity := range reg.Activities {
		if activity.ID == "" {
			return fmt.Errorf("activity missing ID")
		}
		if seen[activity.ID] {
			return fmt.Errorf("duplicate activity ID: %s", activity.ID)
		}
		seen[activity.ID] = true

		if activity.DisplayName == "" {
			return fmt.Errorf("activity %s: missing displayName", activity.ID)
		}
		if activity.TaskType == "" {
			return fmt.Errorf("activity %s: missing taskType", activity.ID)
		}
		if err := validation.ValidateTaskTypeNaming(activity.TaskType); err != nil {
			return fmt.Errorf("activity %s: %w", activity.ID, err)
		}
		if activity.Category == "" {
			return fmt.Errorf("activity %s: missing category", activity.ID)
		}
	}

	fmt.Printf("Registry valid: %d activities.\n", len(reg.Activities))
	return nil
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write registry file: %w", err)
	}
	return nil
}

func usage() {
	fmt.Println(`Usage: registry-updater <command> [flags]

Commands:
  add       Add a new activity to the registry
  update    Update a field on an existing activity
  validate  Check the registry file for malformed entries
  help      Show this help message

Examples:
  registry-updater add -id analyze-responses -displayName "Analyze Responses" \
    -description "Extracts signals from onboarding answers and finds gaps" \
    -category onboarding -taskType analyze-responses
  registry-updater update -id analyze-responses -field status -value completed
  registry-updater validate -path configs/activity-registry.json`)
}
