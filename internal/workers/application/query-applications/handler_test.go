package queryapplications

import (
	"context"
	"testing"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/lifecycle/lifecycletest"
	"codavert-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Execute(t *testing.T) {
	f := lifecycletest.New(t)
	h, err := NewHandler(HandlerOptions{Engine: f.Engine, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	ctx := context.Background()

	first := f.Submit(t, "one@example.com")
	second := f.Hire(t, "two@example.com")

	t.Run("by id", func(t *testing.T) {
		out, err := h.Execute(ctx, &Input{ApplicationID: first.ID})
		require.NoError(t, err)
		require.Equal(t, 1, out.Count)
		assert.Equal(t, first.ID, out.Applications[0].ID)
	})

	t.Run("by status", func(t *testing.T) {
		out, err := h.Execute(ctx, &Input{Status: string(models.StatusHired)})
		require.NoError(t, err)
		require.Equal(t, 1, out.Count)
		assert.Equal(t, second.ID, out.Applications[0].ID)
	})

	t.Run("empty status list is not nil", func(t *testing.T) {
		out, err := h.Execute(ctx, &Input{Status: string(models.StatusWithdrawn)})
		require.NoError(t, err)
		assert.NotNil(t, out.Applications)
		assert.Zero(t, out.Count)
	})

	t.Run("all", func(t *testing.T) {
		out, err := h.Execute(ctx, &Input{})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Count)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := h.Execute(ctx, &Input{ApplicationID: 999})
		assert.Equal(t, errors.ErrCodeApplicationNotFound, errors.CodeOf(err))
	})
}
