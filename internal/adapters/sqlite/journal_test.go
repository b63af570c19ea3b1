package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSimBot/internal/adapters/logger"
	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ports"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(Config{
		DBPath: filepath.Join(t.TempDir(), "journal.db"),
		Logger: logger.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func closedPosition(id string, pnl float64, closedAt time.Time) *domain.Position {
	return &domain.Position{
		ID:         id,
		Symbol:     "BTC/USDT",
		Side:       domain.Long,
		Amount:     250,
		EntryPrice: 45000,
		Confidence: 0.8,
		OpenedAt:   closedAt.Add(-time.Minute),
		Status:     domain.StatusClosed,
		ExitPrice:  46000,
		PnL:        pnl,
		ClosedAt:   closedAt,
	}
}

func TestNewJournalRequiresLogger(t *testing.T) {
	_, err := NewJournal(Config{DBPath: filepath.Join(t.TempDir(), "x.db")})
	assert.Error(t, err)
}

func TestRecordAndRecent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, j.Record(ctx, closedPosition("t1", 10, base)))
	require.NoError(t, j.Record(ctx, closedPosition("t2", -4, base.Add(time.Minute))))

	trades, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// Newest first.
	assert.Equal(t, "t2", trades[0].ID)
	assert.Equal(t, "t1", trades[1].ID)
	assert.Equal(t, domain.Long, trades[0].Side)
	assert.Equal(t, domain.StatusClosed, trades[0].Status)
	assert.Equal(t, -4.0, trades[0].PnL)
}

func TestRecentRespectsLimit(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, closedPosition(
			string(rune('a'+i)), float64(i), base.Add(time.Duration(i)*time.Minute),
		)))
	}

	trades, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, trades, 3)
	assert.Equal(t, "e", trades[0].ID)
}

func TestTotalProfit(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	total, err := j.TotalProfit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)

	base := time.Now().UTC()
	require.NoError(t, j.Record(ctx, closedPosition("w1", 25.5, base)))
	require.NoError(t, j.Record(ctx, closedPosition("l1", -5.5, base.Add(time.Second))))

	total, err = j.TotalProfit(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, total, 1e-9)
}

func TestRecordRejectsOpenPositions(t *testing.T) {
	j := newTestJournal(t)

	pos := closedPosition("open1", 0, time.Now())
	pos.Status = domain.StatusOpen

	err := j.Record(context.Background(), pos)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrQueryFailed)
}

func TestRecordRejectsDuplicateID(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, j.Record(ctx, closedPosition("dup", 1, base)))
	err := j.Record(ctx, closedPosition("dup", 2, base.Add(time.Second)))
	assert.ErrorIs(t, err, ports.ErrQueryFailed)
}
