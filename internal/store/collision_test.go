package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/collision"
)

func testEvent(side collision.Side, ts int64) collision.Event {
	return collision.Event{
		ID:                uuid.NewString(),
		ContactPoint:      r3.Vec{X: 0.1, Y: 0.2, Z: 0.3},
		Side:              side,
		ImpactSpeed:       9.5,
		ApproachDirection: r3.Vec{X: -1},
		TimestampMillis:   ts,
	}
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess, err := repo.Start("color_threshold")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, err := repo.GetByID(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "color_threshold", got.Detector)
	assert.Nil(t, got.EndedAt)

	require.NoError(t, repo.End(sess.ID))
	got, err = repo.GetByID(sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndedAt)
	assert.False(t, got.EndedAt.Before(got.StartedAt))

	assert.ErrorIs(t, repo.End("missing"), ErrNotFound)
	_, err = repo.GetByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Start("frame_delta")
	require.NoError(t, err)
	all, err := repo.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	one, err := repo.List(1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestCollisions_InsertAndGet(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Sessions().Start("frame_delta")
	require.NoError(t, err)

	ev := testEvent(collision.SideA, 1200)
	ev.Synthetic = true
	_, err = s.Collisions().Insert(sess.ID, ev)
	require.NoError(t, err)

	got, err := s.Collisions().GetByID(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev, got.Event)
	assert.Equal(t, sess.ID, got.SessionID)

	_, err = s.Collisions().GetByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollisions_RequiresSession(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Collisions().Insert("no-such-session", testEvent(collision.SideA, 0))
	assert.Error(t, err, "foreign key should reject unknown sessions")
}

func TestCollisions_ListAndCount(t *testing.T) {
	s := newTestStore(t)
	first, err := s.Sessions().Start("frame_delta")
	require.NoError(t, err)
	second, err := s.Sessions().Start("frame_delta")
	require.NoError(t, err)

	for i, side := range []collision.Side{collision.SideA, collision.SideB, collision.SideA} {
		_, err := s.Collisions().Insert(first.ID, testEvent(side, int64(i*1000)))
		require.NoError(t, err)
	}
	_, err = s.Collisions().Insert(second.ID, testEvent(collision.SideB, 0))
	require.NoError(t, err)

	list, err := s.Collisions().List(CollisionFilter{SessionID: first.ID})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	all, err := s.Collisions().List(CollisionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	limited, err := s.Collisions().List(CollisionFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	counts, err := s.Collisions().CountBySide(first.ID)
	require.NoError(t, err)
	assert.Equal(t, map[collision.Side]int{collision.SideA: 2, collision.SideB: 1}, counts)

	counts, err = s.Collisions().CountBySide("")
	require.NoError(t, err)
	assert.Equal(t, map[collision.Side]int{collision.SideA: 2, collision.SideB: 2}, counts)

	counts, err = s.Collisions().CountBySide("empty")
	require.NoError(t, err)
	assert.Equal(t, map[collision.Side]int{collision.SideA: 0, collision.SideB: 0}, counts)
}
