package simulate

import (
	"context"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/imposter/internal/broadcast"
	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/provider"
	"github.com/gyaneshwarpardhi/imposter/internal/service"
	"github.com/gyaneshwarpardhi/imposter/internal/store"
	"github.com/gyaneshwarpardhi/imposter/internal/syncer"
	"github.com/gyaneshwarpardhi/imposter/internal/ttl"
)

func newTestGenerator(t *testing.T) (*Generator, *service.Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	sched := ttl.New(func(identity.Kind, string) {}, time.Second)
	br := broadcast.New(8)
	sim := provider.NewSimulated("")
	svc := service.New(st, sched, br, sim, sim, sim, syncer.New(st, sim, br))
	return New(svc, st, DefaultIntervals()), svc, st
}

func TestSimulateSMSDeliversToActiveNumber(t *testing.T) {
	ctx := context.Background()
	g, svc, _ := newTestGenerator(t)

	res, err := svc.NewPhone(ctx)
	require.NoError(t, err)

	g.SimulateSMS(ctx)

	msgs, err := svc.PhoneMessages(ctx, res.Key)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Message)
	assert.NotEmpty(t, msgs[0].Message.From)
	assert.NotEmpty(t, msgs[0].Message.Body)
}

func TestSimulateSMSNoActiveNumbers(t *testing.T) {
	g, _, _ := newTestGenerator(t)
	// Nothing to deliver to; must not panic or create anything.
	g.SimulateSMS(context.Background())
}

func TestSimulateTransactionDeliversToActiveCard(t *testing.T) {
	ctx := context.Background()
	g, svc, _ := newTestGenerator(t)

	res, err := svc.NewCard(ctx)
	require.NoError(t, err)

	g.SimulateTransaction(ctx)

	txs, err := svc.Transactions(ctx, res.Key)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	tx := txs[0].Transaction
	require.NotNil(t, tx)
	assert.NotEmpty(t, tx.Merchant)
	assert.Greater(t, tx.Amount, 0.0)
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, "approved", tx.Status)
}

func TestSimulateTransactionSkipsLockedCard(t *testing.T) {
	ctx := context.Background()
	g, svc, _ := newTestGenerator(t)

	res, err := svc.NewCard(ctx)
	require.NoError(t, err)
	_, err = svc.ToggleLock(ctx, res.Key)
	require.NoError(t, err)

	g.SimulateTransaction(ctx)

	txs, err := svc.Transactions(ctx, res.Key)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestRandomAmountBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := RandomAmount()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
		assert.InDelta(t, v, math.Round(v*100)/100, 1e-9, "two decimal places")
	}
}

func TestRandomTables(t *testing.T) {
	assert.NotEmpty(t, RandomSender())
	assert.NotEmpty(t, RandomSubject())
	assert.NotEmpty(t, RandomBody())
	assert.Regexp(t, regexp.MustCompile(`\S`), RandomSMSBody())
	assert.NotEmpty(t, RandomMerchant())
}

func TestNewFixesInvalidIntervals(t *testing.T) {
	fixed := New(nil, nil, Intervals{SMSMin: -1, TxMax: -5})
	assert.Equal(t, DefaultIntervals(), fixed.intervals)
}
