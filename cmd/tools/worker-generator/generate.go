package main

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"codavert-workers/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name          string
	PackageName   string
	WorkerName    string
	TaskType      string
	Description   string
	InputFields   []Field
	OutputFields  []Field
	Timeout       time.Duration
	MaxJobsActive int
}

type Field struct {
	Name    string
	GoType  string
	JSONTag string
}

// Generate renders a gofmt'ed worker scaffold for activity, keyed by file name.
func Generate(activity *registry.Activity) (map[string][]byte, error) {
	timeout, err := activity.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	data := WorkerData{
		Name:          activity.DisplayName,
		PackageName:   strings.ReplaceAll(activity.ID, "-", ""),
		WorkerName:    activity.ID,
		TaskType:      activity.TaskType,
		Description:   activity.Description,
		InputFields:   fieldsFromSchema(activity.InputSchema),
		OutputFields:  fieldsFromSchema(activity.OutputSchema),
		Timeout:       timeout,
		MaxJobsActive: 10,
	}

	funcs := template.FuncMap{"durationLiteral": durationLiteral}
	out := make(map[string][]byte, len(templates))
	for filename, src := range templates {
		tmpl, err := template.New(filename).Funcs(funcs).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", filename, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("execute template %s: %w", filename, err)
		}
		formatted, err := format.Source(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", filename, err)
		}
		out[filename] = formatted
	}
	return out, nil
}

func writeFiles(root string, activity *registry.Activity, files map[string][]byte, force bool) (string, []string, error) {
	dir := filepath.Join(root, categoryDirectory(activity.Category), activity.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil && !force {
			return dir, written, fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.WriteFile(path, files[name], 0644); err != nil {
			return dir, written, err
		}
		written = append(written, path)
	}
	return dir, written, nil
}

// categoryDirectory maps registry categories to directories under
// internal/workers.
func categoryDirectory(category string) string {
	switch category {
	case "recruitment", "communication":
		return "application"
	default:
		return strings.ToLower(category)
	}
}

// fieldsFromSchema lists the schema's properties sorted by name.
func fieldsFromSchema(schema map[string]interface{}) []Field {
	props, _ := schema["properties"].(map[string]interface{})
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		fields = append(fields, Field{
			Name:    goFieldName(name),
			GoType:  goTypeFromJSONType(details["type"]),
			JSONTag: fmt.Sprintf("`json:\"%s\"`", name),
		})
	}
	return fields
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	switch jsonType {
	case "string":
		return "string"
	case "integer":
		return "int64"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// goFieldName exports a camelCase property, spelling trailing "Id" and
// "Url" as initialisms.
func goFieldName(prop string) string {
	if prop == "" {
		return prop
	}
	name := strings.ToUpper(prop[:1]) + prop[1:]
	for _, suffix := range []string{"Id", "Url"} {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix) + strings.ToUpper(suffix)
		}
	}
	return name
}

func durationLiteral(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%d * time.Second", d/time.Second)
	}
	return fmt.Sprintf("%d * time.Millisecond", d/time.Millisecond)
}
