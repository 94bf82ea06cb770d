package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/imposter/internal/broadcast"
	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/provider"
	"github.com/gyaneshwarpardhi/imposter/internal/store"
	"github.com/gyaneshwarpardhi/imposter/internal/syncer"
	"github.com/gyaneshwarpardhi/imposter/internal/ttl"
)

func newTestService(t *testing.T) (*Service, *store.Memory, *broadcast.Broker, *ttl.Scheduler) {
	t.Helper()
	st := store.NewMemory()
	sched := ttl.New(func(identity.Kind, string) {}, time.Second)
	br := broadcast.New(8)
	sim := provider.NewSimulated("")
	inbox := syncer.New(st, sim, br)
	return New(st, sched, br, sim, sim, sim, inbox), st, br, sched
}

func TestNewEmailLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, st, _, sched := newTestService(t)

	res, err := svc.NewEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, identity.KindEmail, res.Kind)
	assert.Contains(t, res.Key, "@")
	assert.WithinDuration(t, time.Now().Add(DefaultEmailTTL), res.ExpiresAt, 5*time.Second)
	assert.Equal(t, 1, sched.Pending())

	got, err := st.Get(ctx, identity.KindEmail, res.Key)
	require.NoError(t, err)
	assert.Equal(t, res.Key, got.Key)

	require.NoError(t, svc.DeleteEmail(ctx, res.Key))
	assert.Zero(t, sched.Pending())
	_, err = st.Get(ctx, identity.KindEmail, res.Key)
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestSyncInboxUnknownAddress(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.SyncInbox(context.Background(), "nobody@imposter.dev")
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestNewPhoneAndSMS(t *testing.T) {
	ctx := context.Background()
	svc, _, br, _ := newTestService(t)

	res, err := svc.NewPhone(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^\+947\d{8}$`, res.Key)

	sub := br.Subscribe(res.Room())
	defer br.Unsubscribe(sub)

	ev, err := svc.AddSMS(ctx, res.Key, "", "")
	require.NoError(t, err)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "System", ev.Message.From)
	assert.Equal(t, "Test message", ev.Message.Body)

	env := <-sub.C
	assert.Equal(t, "new-sms", env.Event)
	assert.Equal(t, ev.ID, env.Data.ID)

	msgs, err := svc.PhoneMessages(ctx, res.Key)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestAddSMSUnknownNumber(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.AddSMS(context.Background(), "+94700000000", "x", "y")
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestNewCardAndTransactions(t *testing.T) {
	ctx := context.Background()
	svc, _, br, _ := newTestService(t)

	res, err := svc.NewCard(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Card)
	assert.True(t, provider.LuhnValid(res.Card.Number))
	assert.False(t, res.Locked)

	sub := br.Subscribe(res.Room())
	defer br.Unsubscribe(sub)

	ev, err := svc.AddTransaction(ctx, res.Key, "Acme Corp", 12.34, "")
	require.NoError(t, err)
	require.NotNil(t, ev.Transaction)
	assert.Equal(t, "USD", ev.Transaction.Currency, "currency defaults to USD")
	assert.Equal(t, "approved", ev.Transaction.Status)

	env := <-sub.C
	assert.Equal(t, "new-transaction", env.Event)

	txs, err := svc.Transactions(ctx, res.Key)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestToggleLockBlocksTransactions(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	res, err := svc.NewCard(ctx)
	require.NoError(t, err)

	locked, err := svc.ToggleLock(ctx, res.Key)
	require.NoError(t, err)
	assert.True(t, locked.Locked)

	_, err = svc.AddTransaction(ctx, res.Key, "Acme", 1, "USD")
	assert.ErrorIs(t, err, identity.ErrLocked)

	unlocked, err := svc.ToggleLock(ctx, res.Key)
	require.NoError(t, err)
	assert.False(t, unlocked.Locked)

	_, err = svc.AddTransaction(ctx, res.Key, "Acme", 1, "USD")
	assert.NoError(t, err)
}

func TestSetTTLAppliesToNewResources(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	require.NoError(t, svc.SetTTL(identity.KindEmail, time.Minute))
	assert.Equal(t, time.Minute, svc.TTL(identity.KindEmail))

	res, err := svc.NewEmail(ctx)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), res.ExpiresAt, 5*time.Second)

	assert.ErrorIs(t, svc.SetTTL(identity.KindEmail, 0), identity.ErrValidation)
	assert.ErrorIs(t, svc.SetTTL("bogus", time.Minute), identity.ErrValidation)
}

func TestApplyTTLsKeepsCurrentOnZero(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	svc.ApplyTTLs(time.Minute, 0, 2*time.Hour)
	assert.Equal(t, time.Minute, svc.TTL(identity.KindEmail))
	assert.Equal(t, DefaultPhoneTTL, svc.TTL(identity.KindPhone))
	assert.Equal(t, 2*time.Hour, svc.TTL(identity.KindCard))
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	svc, st, _, _ := newTestService(t)

	_, err := svc.NewEmail(ctx)
	require.NoError(t, err)
	_, err = svc.NewPhone(ctx)
	require.NoError(t, err)
	_, err = svc.NewCard(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.ClearAll(ctx))

	for _, kind := range identity.Kinds {
		active, err := st.ListActive(ctx, kind)
		require.NoError(t, err)
		assert.Empty(t, active)
	}
}
