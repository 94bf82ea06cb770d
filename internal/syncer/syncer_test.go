package syncer

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
)

// fakeSource serves a scripted remote inbox and counts detail fetches.
type fakeSource struct {
	summaries    []provider.EventSummary
	details      map[string]*identity.Event
	detailCalls  int
	listingCalls int
}

func (f *fakeSource) FetchEvents(context.Context, *identity.Resource) ([]provider.EventSummary, error) {
	f.listingCalls++
	return f.summaries, nil
}

func (f *fakeSource) FetchEventDetail(_ context.Context, _ *identity.Resource, remoteID string) (*identity.Event, error) {
	f.detailCalls++
	ev, ok := f.details[remoteID]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return ev, nil
}

func newTestResource(t *testing.T, st store.Store) *identity.Resource {
	t.Helper()
	res := &identity.Resource{
		Kind:      identity.KindEmail,
		Key:       "a@imposter.dev",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, st.Create(context.Background(), res))
	return res
}

func remoteEvent(remoteID, body string, at time.Time) *identity.Event {
	return &identity.Event{
		ID:        "local-" + remoteID,
		RemoteID:  remoteID,
		Timestamp: at,
		Message:   &identity.Message{From: "sender@remote.io", Body: body},
	}
}

func TestSyncInsertsOnlyUnseenEvents(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	res := newTestResource(t, st)

	now := time.Now()
	src := &fakeSource{
		summaries: []provider.EventSummary{{RemoteID: "r1"}, {RemoteID: "r2"}},
		details: map[string]*identity.Event{
			"r1": remoteEvent("r1", "first", now),
			"r2": remoteEvent("r2", "second", now.Add(time.Second)),
		},
	}
	s := New(st, src, broadcast.New(4))

	n, err := s.Sync(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, src.detailCalls)

	// Second pass over the same listing inserts nothing and fetches no detail.
	n, err = s.Sync(ctx, res)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, src.detailCalls)

	evs, err := st.Events(ctx, res.Kind, res.Key)
	require.NoError(t, err)
	assert.Len(t, evs, 2)
}

func TestSyncEmptyListingShortCircuits(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	res := newTestResource(t, st)

	src := &fakeSource{}
	s := New(st, src, broadcast.New(4))

	n, err := s.Sync(ctx, res)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, src.detailCalls)
}

func TestSyncPartialOverlap(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	res := newTestResource(t, st)

	now := time.Now()
	src := &fakeSource{
		summaries: []provider.EventSummary{{RemoteID: "r1"}},
		details:   map[string]*identity.Event{"r1": remoteEvent("r1", "first", now)},
	}
	s := New(st, src, broadcast.New(4))

	n, err := s.Sync(ctx, res)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// A new remote message appears alongside the known one.
	src.summaries = append(src.summaries, provider.EventSummary{RemoteID: "r2"})
	src.details["r2"] = remoteEvent("r2", "second", now.Add(time.Second))
	src.detailCalls = 0

	n, err = s.Sync(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, src.detailCalls, "only the unseen event is fetched in detail")
}

func TestSyncBroadcastsEachInsert(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	res := newTestResource(t, st)

	br := broadcast.New(4)
	sub := br.Subscribe(res.Room())
	defer br.Unsubscribe(sub)

	now := time.Now()
	src := &fakeSource{
		summaries: []provider.EventSummary{{RemoteID: "r1"}},
		details:   map[string]*identity.Event{"r1": remoteEvent("r1", "hello", now)},
	}
	s := New(st, src, br)

	_, err := s.Sync(ctx, res)
	require.NoError(t, err)

	select {
	case env := <-sub.C:
		assert.Equal(t, "new-email", env.Event)
		require.NotNil(t, env.Data.Message)
		assert.Equal(t, "hello", env.Data.Message.Body)
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}
}

func TestSyncSkipsBlankRemoteIDs(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	res := newTestResource(t, st)

	src := &fakeSource{summaries: []provider.EventSummary{{RemoteID: ""}}}
	s := New(st, src, broadcast.New(4))

	n, err := s.Sync(ctx, res)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, src.detailCalls)
}
