package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ContainsEveryTaskType(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	for _, taskType := range []string{
		"application.submit",
		"application.status.set",
		"application.offer.accept",
		"application.update",
		"application.delete",
		"application.query",
		"application.email.send",
		"document.number.allocate",
	} {
		activity, ok := reg.Lookup(taskType)
		require.True(t, ok, taskType)
		assert.NotEmpty(t, activity.InputSchema, taskType)
		assert.NotEmpty(t, activity.ErrorCodes, taskType)
	}

	_, ok := reg.Lookup("unknown.task")
	assert.False(t, ok)
}

func TestParse_RejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte(`{"activities":[
		{"id":"a","taskType":"x"},
		{"id":"b","taskType":"x"}
	]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate task type")

	_, err = Parse([]byte(`{"activities":[{"id":"","taskType":"x"}]}`))
	require.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	reg := MustDefault()
	path := filepath.Join(t.TempDir(), "registry.json")

	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Activities, len(reg.Activities))
	assert.Equal(t, reg.Version, loaded.Version)
}

func TestByCategory(t *testing.T) {
	reg := MustDefault()

	docs := reg.ByCategory("documents")
	require.Len(t, docs, 1)
	assert.Equal(t, "document.number.allocate", docs[0].TaskType)

	assert.Len(t, reg.ByCategory("recruitment"), 6)
	assert.Empty(t, reg.ByCategory("franchise"))
}

func TestTimeoutDuration(t *testing.T) {
	a := &Activity{ID: "x", Timeout: "15s"}
	d, err := a.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)

	a.Timeout = ""
	d, err = a.TimeoutDuration()
	require.NoError(t, err)
	assert.Zero(t, d)

	a.Timeout = "soon"
	_, err = a.TimeoutDuration()
	assert.ErrorContains(t, err, "invalid timeout")
}
