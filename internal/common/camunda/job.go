package camunda

import (
	"context"
	"encoding/json"
	"fmt"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/validation"
	"codavert-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// DecodeVariables validates the job variables against the activity's input
// schema and decodes them into out.
func DecodeVariables(job entities.Job, activity *registry.Activity, out interface{}) error {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return errors.NewInputParsingError(err)
	}

	if activity != nil && len(activity.InputSchema) > 0 {
		result := validation.ValidateInput(variables, activity.InputSchema)
		if !result.Valid {
			return errors.NewValidationError(fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()))
		}
	}

	if err := json.Unmarshal([]byte(job.GetVariables()), out); err != nil {
		return errors.NewInputParsingError(err)
	}
	return nil
}

// MustActivity looks up taskType in the embedded registry. Workers are
// registered at startup, so a missing entry is a programming error.
func MustActivity(taskType string) *registry.Activity {
	activity, ok := registry.MustDefault().Lookup(taskType)
	if !ok {
		panic(fmt.Sprintf("activity %q is not in the registry", taskType))
	}
	return activity
}

// CompleteJob sends output as the job's result variables, retrying while the
// broker is unavailable.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, retry *RetryConfig) error {
	if output == nil {
		output = map[string]interface{}{}
	}
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("build complete command: %w", err)
	}

	return Retry(ctx, retry, "complete job", func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
}
