package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	billCalls  atomic.Int32
	stockCalls atomic.Int32
	bills      BillStats
	stock      StockStats
	gate       chan struct{}
	lastUntil  time.Time
	mu         sync.Mutex
}

func (r *stubRepo) BillStats(_ context.Context, from, to time.Time) (BillStats, error) {
	r.billCalls.Add(1)
	if r.gate != nil {
		<-r.gate
	}
	return r.bills, nil
}

func (r *stubRepo) StockStats(_ context.Context, today, until time.Time) (StockStats, error) {
	r.stockCalls.Add(1)
	r.mu.Lock()
	r.lastUntil = until
	r.mu.Unlock()
	return r.stock, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(repo, NewCache(client, time.Minute), Config{ExpiryWarningDays: 14}, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return svc, mr
}

func TestSummaryIsCachedUntilInvalidated(t *testing.T) {
	repo := &stubRepo{
		bills: BillStats{Bills: 4, CompletedSales: decimal.RequireFromString("189.50"), Cancelled: 1},
		stock: StockStats{Medicines: 12, LowStock: 2, Expired: 1},
	}
	svc, mr := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.Summary(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", first.Day)
	assert.Equal(t, 4, first.BillsToday)
	assert.True(t, decimal.RequireFromString("189.50").Equal(first.SalesToday))
	assert.Equal(t, 14, first.ExpiryWindowDays)
	assert.True(t, mr.Exists("dashboard:summary:2026-03-14:1"))

	repo.bills.Bills = 5
	second, err := svc.Summary(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 4, second.BillsToday)
	assert.Equal(t, int32(1), repo.billCalls.Load())

	require.NoError(t, svc.Invalidate(ctx))
	third, err := svc.Summary(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 5, third.BillsToday)
	assert.Equal(t, int32(2), repo.billCalls.Load())

	repo.mu.Lock()
	assert.Equal(t, "2026-03-28", repo.lastUntil.Format("2006-01-02"))
	repo.mu.Unlock()
}

func TestSummaryCollapsesConcurrentMisses(t *testing.T) {
	repo := &stubRepo{gate: make(chan struct{})}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	// Prime the version key so every caller builds the same cache key.
	_, err := svc.cache.Version(ctx)
	require.NoError(t, err)

	const callers = 6
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Summary(ctx, day)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return repo.billCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(repo.gate)
	wg.Wait()
	assert.LessOrEqual(t, repo.billCalls.Load(), int32(2))
}

func TestSummaryWithoutRedis(t *testing.T) {
	repo := &stubRepo{bills: BillStats{Bills: 1}}
	svc := NewService(repo, NewCache(nil, time.Minute), Config{}, nil)
	for i := 0; i < 2; i++ {
		s, err := svc.Summary(context.Background(), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, 1, s.BillsToday)
		assert.Equal(t, 30, s.ExpiryWindowDays)
	}
	assert.Equal(t, int32(2), repo.billCalls.Load())
	assert.NoError(t, svc.Invalidate(context.Background()))
}
