package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSimBot/internal/adapters/logger"
	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ports"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(Config{
		ConfidenceStep: 0.01,
		ConfidenceCap:  0.95,
		InitConfidence: 0.5,
		Logger:         logger.NewNop(),
	})
	require.NoError(t, err)
	return l
}

func validProposal() *domain.Proposal {
	return &domain.Proposal{
		Symbol:      "BTC/USDT",
		Price:       100,
		Confidence:  0.8,
		ShouldTrade: true,
		Side:        domain.Long,
		Amount:      100,
	}
}

type recordingScheduler struct {
	mu        sync.Mutex
	scheduled []domain.Position
}

func (r *recordingScheduler) ScheduleClose(pos domain.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled = append(r.scheduled, pos)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{ConfidenceCap: 0.95})
	assert.Error(t, err, "missing logger must be rejected")

	_, err = New(Config{ConfidenceCap: 1.5, Logger: logger.NewNop()})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = New(Config{ConfidenceCap: 0.95, InitConfidence: 0.96, Logger: logger.NewNop()})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestOpenRejectsInvalidProposals(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	cases := []struct {
		name string
		p    *domain.Proposal
	}{
		{"nil proposal", nil},
		{"zero amount", &domain.Proposal{Symbol: "BTC/USDT", Price: 100, Side: domain.Long}},
		{"negative amount", &domain.Proposal{Symbol: "BTC/USDT", Price: 100, Amount: -5, Side: domain.Long}},
		{"zero price", &domain.Proposal{Symbol: "BTC/USDT", Amount: 100, Side: domain.Long}},
		{"unknown side", &domain.Proposal{Symbol: "BTC/USDT", Price: 100, Amount: 100, Side: "SIDEWAYS"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Open(ctx, tc.p)
			assert.ErrorIs(t, err, ports.ErrInvalidProposal)
		})
	}

	perf, open := l.Snapshot()
	assert.Equal(t, 0, perf.TotalOpened, "failed opens must not count")
	assert.Empty(t, open)
}

func TestOpenThenSnapshot(t *testing.T) {
	l := newTestLedger(t)

	pos, err := l.Open(context.Background(), validProposal())
	require.NoError(t, err)
	require.NotEmpty(t, pos.ID)
	assert.Equal(t, domain.StatusOpen, pos.Status)

	perf, open := l.Snapshot()
	assert.Equal(t, 1, perf.TotalOpened)
	assert.Equal(t, 0, perf.TotalClosed)
	require.Len(t, open, 1)
	assert.Equal(t, pos.ID, open[0].ID)
	assert.Equal(t, "BTC/USDT", open[0].Symbol)
	assert.Equal(t, 100.0, open[0].Amount)
	assert.Equal(t, 100.0, open[0].EntryPrice)
	assert.Equal(t, domain.Long, open[0].Side)
	assert.False(t, open[0].OpenedAt.IsZero())
}

func TestOpenSchedulesClose(t *testing.T) {
	l := newTestLedger(t)
	sched := &recordingScheduler{}
	l.AttachScheduler(sched)

	pos, err := l.Open(context.Background(), validProposal())
	require.NoError(t, err)

	sched.mu.Lock()
	defer sched.mu.Unlock()
	require.Len(t, sched.scheduled, 1)
	assert.Equal(t, pos.ID, sched.scheduled[0].ID)
}

func TestCloseLongComputesPnL(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	pos, err := l.Open(ctx, validProposal())
	require.NoError(t, err)

	closed, err := l.Close(ctx, pos.ID, 105)
	require.NoError(t, err)

	// LONG of $100 at entry 100 closed at 105: (105-100)*(100/100) = 5.0
	assert.InDelta(t, 5.0, closed.PnL, 1e-9)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	assert.Equal(t, 105.0, closed.ExitPrice)
	assert.False(t, closed.ClosedAt.IsZero())

	perf, open := l.Snapshot()
	assert.Empty(t, open)
	assert.Equal(t, 1, perf.TotalClosed)
	assert.Equal(t, 1, perf.Wins)
	assert.InDelta(t, 5.0, perf.TotalPnL, 1e-9)
	assert.InDelta(t, 0.51, perf.ConfidenceLevel, 1e-9, "confidence must bump by exactly 0.01")
}

func TestCloseShortPnLSign(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	p := validProposal()
	p.Side = domain.Short
	pos, err := l.Open(ctx, p)
	require.NoError(t, err)

	// SHORT closed above entry loses money.
	closed, err := l.Close(ctx, pos.ID, 105)
	require.NoError(t, err)
	assert.InDelta(t, -5.0, closed.PnL, 1e-9)

	perf, _ := l.Snapshot()
	assert.Equal(t, 0, perf.Wins)
	assert.InDelta(t, -5.0, perf.TotalPnL, 1e-9)
}

func TestDoubleCloseFails(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	pos, err := l.Open(ctx, validProposal())
	require.NoError(t, err)

	_, err = l.Close(ctx, pos.ID, 101)
	require.NoError(t, err)
	perfAfterFirst, _ := l.Snapshot()

	_, err = l.Close(ctx, pos.ID, 99)
	assert.ErrorIs(t, err, ports.ErrUnknownPosition)

	perfAfterSecond, _ := l.Snapshot()
	assert.Equal(t, perfAfterFirst, perfAfterSecond, "failed close must not touch counters")
}

func TestCloseUnknownID(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Close(context.Background(), "no-such-id", 100)
	assert.ErrorIs(t, err, ports.ErrUnknownPosition)
}

func TestConfidenceCapped(t *testing.T) {
	l, err := New(Config{
		ConfidenceStep: 0.01,
		ConfidenceCap:  0.95,
		InitConfidence: 0.945,
		Logger:         logger.NewNop(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		pos, err := l.Open(ctx, validProposal())
		require.NoError(t, err)
		_, err = l.Close(ctx, pos.ID, 101)
		require.NoError(t, err)
	}

	perf, _ := l.Snapshot()
	assert.InDelta(t, 0.95, perf.ConfidenceLevel, 1e-9)
}

func TestLearningProgressMonotonicAndClamped(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	var last float64
	for i := 0; i < 150; i++ {
		pos, err := l.Open(ctx, validProposal())
		require.NoError(t, err)
		_, err = l.Close(ctx, pos.ID, 101) // every close a win: win rate constant at 1.0
		require.NoError(t, err)

		perf, _ := l.Snapshot()
		assert.GreaterOrEqual(t, perf.LearningProgress, last)
		assert.LessOrEqual(t, perf.LearningProgress, 100.0)
		last = perf.LearningProgress
	}
	assert.Equal(t, 100.0, last, "150 all-win closes must saturate progress")
}

func TestListenersReceiveCopies(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	var opened, closed []domain.Position
	var mu sync.Mutex
	l.OnOpened(func(p domain.Position) {
		mu.Lock()
		opened = append(opened, p)
		mu.Unlock()
	})
	l.OnClosed(func(p domain.Position) {
		mu.Lock()
		closed = append(closed, p)
		mu.Unlock()
	})

	pos, err := l.Open(ctx, validProposal())
	require.NoError(t, err)
	_, err = l.Close(ctx, pos.ID, 102)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, opened, 1)
	require.Len(t, closed, 1)
	assert.Equal(t, domain.StatusOpen, opened[0].Status)
	assert.Equal(t, domain.StatusClosed, closed[0].Status)
	assert.Equal(t, pos.ID, closed[0].ID)
}

func TestRecentClosedNewestFirst(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		pos, err := l.Open(ctx, validProposal())
		require.NoError(t, err)
		_, err = l.Close(ctx, pos.ID, 101)
		require.NoError(t, err)
		ids = append(ids, pos.ID)
	}

	recent := l.RecentClosed(2)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].ID)
	assert.Equal(t, ids[1], recent[1].ID)

	all := l.RecentClosed(0)
	assert.Len(t, all, 3)
}

func TestConcurrentOpenCloseSnapshot(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pos, err := l.Open(ctx, validProposal())
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := l.Close(ctx, pos.ID, 101); err != nil {
				t.Error(err)
			}
		}()
	}
	// Concurrent readers must never observe a partially applied close.
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			perf, _ := l.Snapshot()
			if perf.Wins > perf.TotalClosed || perf.TotalClosed > perf.TotalOpened {
				t.Errorf("inconsistent counters: %+v", perf)
			}
		}()
	}
	wg.Wait()

	perf, open := l.Snapshot()
	assert.Empty(t, open)
	assert.Equal(t, n, perf.TotalOpened)
	assert.Equal(t, n, perf.TotalClosed)
	assert.Equal(t, n, perf.Wins)
}
