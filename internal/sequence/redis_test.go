package sequence

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newMiniRedisCounter(t *testing.T) (*RedisCounter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCounter(client, "sequence"), mr
}

func TestRedisCounter_Allocate(t *testing.T) {
	counter, mr := newMiniRedisCounter(t)
	a := newTestAllocator(t, counter)
	ctx := context.Background()

	first, err := a.Allocate(ctx, models.DocumentInvoice, 7)
	require.NoError(t, err)
	second, err := a.Allocate(ctx, models.DocumentInvoice, 7)
	require.NoError(t, err)

	assert.Equal(t, "INV-0001", first)
	assert.Equal(t, "INV-0002", second)

	stored, err := mr.Get("sequence:INVOICE:7")
	require.NoError(t, err)
	assert.Equal(t, "2", stored)
}

func TestRedisCounter_Concurrent(t *testing.T) {
	const callers = 1000
	counter, _ := newMiniRedisCounter(t)
	a := newTestAllocator(t, counter)

	var (
		mu   sync.Mutex
		seen = make(map[string]bool, callers)
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(64)
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			number, err := a.Allocate(ctx, models.DocumentMOU, 11)
			if err != nil {
				return err
			}
			mu.Lock()
			seen[number] = true
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, seen, callers)
}

func TestRedisCounter_Seed(t *testing.T) {
	counter, mr := newMiniRedisCounter(t)
	ctx := context.Background()

	require.NoError(t, counter.Seed(ctx, models.DocumentSRS, 2, 40))
	require.NoError(t, counter.Seed(ctx, models.DocumentSRS, 2, 10))

	stored, err := mr.Get("sequence:SRS:2")
	require.NoError(t, err)
	assert.Equal(t, "40", stored)

	next, err := counter.Increment(ctx, models.DocumentSRS, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(41), next)
}

func TestRedisCounter_IncrFailure(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	redisMock.ExpectIncr("sequence:PROPOSAL:1").SetErr(stderrors.New("READONLY You can't write against a read only replica"))

	_, err := NewRedisCounter(client, "").Increment(context.Background(), models.DocumentProposal, 1)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatabaseError, errors.CodeOf(err))
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
