package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wod-wiki/runtime/internal/memory"
)

func TestAllocateRejectsDuplicateRef(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	_, err := s.Allocate(ctx, "timer:is-running", "block-a", memory.Public, true)
	require.NoError(t, err)

	_, err = s.Allocate(ctx, "timer:is-running", "block-a", memory.Public, false)
	assert.ErrorIs(t, err, memory.ErrAlreadyAllocated)
}

func TestSetOverwritesAndNotifiesExactlyOnce(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	ref, err := s.Allocate(ctx, "loop:round", "block-a", memory.Public, 1)
	require.NoError(t, err)

	var notifications []any
	s.Subscribe(func(memory.Ref, memory.Visibility) bool { return true }, func(_ memory.Ref, value any, removed bool) {
		notifications = append(notifications, value)
		assert.False(t, removed)
	})

	require.NoError(t, s.Set(ctx, ref, 2))
	v, ok := s.Get(ref)
	require.True(t, ok)
	assert.Equal(t, 2, v)
	require.Len(t, notifications, 1, "set must notify exactly once")
	assert.Equal(t, 2, notifications[0])
}

func TestSetOnUnknownRefReturnsError(t *testing.T) {
	s := memory.New()
	err := s.Set(context.Background(), memory.Ref{Type: "x", OwnerID: "y"}, 1)
	assert.Error(t, err)
}

func TestReleaseFiresRemovalNotification(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	ref, err := s.Allocate(ctx, "timer:is-running", "block-a", memory.Public, true)
	require.NoError(t, err)

	var removedSeen bool
	s.Subscribe(func(memory.Ref, memory.Visibility) bool { return true }, func(_ memory.Ref, _ any, removed bool) {
		removedSeen = removed
	})

	s.Release(ref)
	assert.True(t, removedSeen)
	_, ok := s.Get(ref)
	assert.False(t, ok)
}

func TestReleaseOwnerRemovesOnlyThatOwnersEntries(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	refA, _ := s.Allocate(ctx, "timer:is-running", "block-a", memory.Public, true)
	refB, _ := s.Allocate(ctx, "timer:is-running", "block-b", memory.Public, true)

	s.ReleaseOwner("block-a")
	_, okA := s.Get(refA)
	_, okB := s.Get(refB)
	assert.False(t, okA)
	assert.True(t, okB)
}

func TestSearchEnforcesPrivateVisibility(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	ref, err := s.Allocate(ctx, "secret", "block-a", memory.Private, 1)
	require.NoError(t, err)

	visibleToOwner := s.Search("block-a", memory.Query{HasType: true, Type: "secret"})
	assert.Contains(t, visibleToOwner, ref)

	visibleToStranger := s.Search("block-b", memory.Query{HasType: true, Type: "secret"})
	assert.NotContains(t, visibleToStranger, ref)
}

func TestSearchEnforcesInheritableVisibilityViaDescendancy(t *testing.T) {
	s := memory.New(memory.WithDescendancy(func(ancestor, candidate string) bool {
		return ancestor == "parent" && candidate == "child"
	}))
	ctx := context.Background()
	ref, err := s.Allocate(ctx, "shared-state", "parent", memory.Inheritable, 1)
	require.NoError(t, err)

	assert.Contains(t, s.Search("child", memory.Query{HasType: true, Type: "shared-state"}), ref)
	assert.NotContains(t, s.Search("sibling", memory.Query{HasType: true, Type: "shared-state"}), ref)
	assert.Contains(t, s.Search("parent", memory.Query{HasType: true, Type: "shared-state"}), ref, "allocator always sees its own entry")
}

func TestSearchPublicVisibleToEveryone(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	ref, err := s.Allocate(ctx, "workout:round", "root", memory.Public, 1)
	require.NoError(t, err)

	assert.Contains(t, s.Search("anyone", memory.Query{}), ref)
}

// TestSubscribeDuringNotificationIsDeferred covers §4.1's "a listener added
// during a notification in progress observes only subsequent
// notifications" guarantee.
func TestSubscribeDuringNotificationIsDeferred(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	ref, err := s.Allocate(ctx, "x", "owner", memory.Public, 1)
	require.NoError(t, err)

	var lateCalls int
	s.Subscribe(func(memory.Ref, memory.Visibility) bool { return true }, func(memory.Ref, any, bool) {
		s.Subscribe(func(memory.Ref, memory.Visibility) bool { return true }, func(memory.Ref, any, bool) {
			lateCalls++
		})
	})

	require.NoError(t, s.Set(ctx, ref, 2))
	assert.Equal(t, 0, lateCalls, "subscriber added mid-notify must not fire on this notification")

	require.NoError(t, s.Set(ctx, ref, 3))
	assert.Equal(t, 1, lateCalls, "it fires on the following notification")
}

func TestUnsubscribeStopsFurtherNotifications(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	ref, err := s.Allocate(ctx, "x", "owner", memory.Public, 1)
	require.NoError(t, err)

	var calls int
	unsub := s.Subscribe(func(memory.Ref, memory.Visibility) bool { return true }, func(memory.Ref, any, bool) {
		calls++
	})
	require.NoError(t, s.Set(ctx, ref, 2))
	assert.Equal(t, 1, calls)

	unsub()
	require.NoError(t, s.Set(ctx, ref, 3))
	assert.Equal(t, 1, calls, "unsubscribed listener must not be called again")
}
