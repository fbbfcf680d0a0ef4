// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// ActivityRegistry is the catalogue of Zeebe task types this service
// implements. The BPMN modeler reads it from /activities.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one worker. InputSchema is enforced on every job.
type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	Timeout              string                 `json:"timeout"`
	Retries              int                    `json:"retries"`
	Workflows            []string               `json:"workflows"`
	Tags                 []string               `json:"tags"`
}

// TimeoutDuration parses Timeout. An empty timeout yields zero.
func (a *Activity) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout)
	}
	return d, nil
}

//go:embed activities.json
var defaultActivities []byte

var (
	defaultOnce sync.Once
	defaultReg  *ActivityRegistry
	defaultErr  error
)

// LoadRegistry reads a registry document from disk.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse activity registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Default returns the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(defaultActivities)
	})
	return defaultReg, defaultErr
}

// MustDefault panics when the embedded registry is malformed.
func MustDefault() *ActivityRegistry {
	reg, err := Default()
	if err != nil {
		panic(err)
	}
	return reg
}

// Lookup finds an activity by its Zeebe task type.
func (r *ActivityRegistry) Lookup(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// ByCategory returns the activities in category, in registry order.
func (r *ActivityRegistry) ByCategory(category string) []Activity {
	var out []Activity
	for _, a := range r.Activities {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

// Validate checks that ids and task types are present and unique.
func (r *ActivityRegistry) Validate() error {
	ids := make(map[string]bool, len(r.Activities))
	taskTypes := make(map[string]bool, len(r.Activities))
	for _, a := range r.Activities {
		if a.ID == "" || a.TaskType == "" {
			return fmt.Errorf("activity %q: id and taskType are required", a.DisplayName)
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity id %q", a.ID)
		}
		if taskTypes[a.TaskType] {
			return fmt.Errorf("duplicate task type %q", a.TaskType)
		}
		if a.Retries < 0 {
			return fmt.Errorf("activity %q: retries must not be negative", a.ID)
		}
		ids[a.ID] = true
		taskTypes[a.TaskType] = true
	}
	return nil
}

func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
