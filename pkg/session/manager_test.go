package session_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/calewin/fieldhand/pkg/log"
	"github.com/calewin/fieldhand/pkg/session"
	"github.com/calewin/fieldhand/pkg/session/sessiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerLazyOpen(t *testing.T) {
	factory := sessiontest.NewSequenceFactory(sessiontest.New())
	m := session.NewManager(factory.Factory(), session.ManagerConfig{}, log.Nop())

	assert.Equal(t, 0, factory.Opened(), "no session until first use")

	sess, err := m.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, 1, factory.Opened())

	// Repeated Current calls reuse the same session.
	_, err = m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, factory.Opened())
}

func TestManagerRotatesAtInterval(t *testing.T) {
	first := sessiontest.New()
	second := sessiontest.New()
	factory := sessiontest.NewSequenceFactory(first, second)
	m := session.NewManager(factory.Factory(), session.ManagerConfig{
		RotationInterval: 3,
	}, log.Nop())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		require.NoError(t, m.RecordRequest(ctx))
	}
	assert.Equal(t, 1, factory.Opened())
	assert.Equal(t, 2, m.RequestCount())
	assert.Equal(t, 0, m.Rotations())

	// The third request crosses the threshold and rotates exactly once.
	require.NoError(t, m.RecordRequest(ctx))
	assert.Equal(t, 2, factory.Opened())
	assert.Equal(t, 1, m.Rotations())
	assert.True(t, first.Closed, "the old session is closed on rotation")
	assert.Equal(t, 0, m.RequestCount(), "the counter resets with the new session")

	// The fresh session starts its own count toward the next rotation.
	require.NoError(t, m.RecordRequest(ctx))
	assert.Equal(t, 1, m.RequestCount())
	assert.Equal(t, 2, factory.Opened())
}

func TestManagerRotatesOnAge(t *testing.T) {
	factory := sessiontest.NewSequenceFactory(sessiontest.New(), sessiontest.New())
	m := session.NewManager(factory.Factory(), session.ManagerConfig{
		RotationInterval: 1000,
		MaxSessionAge:    20 * time.Millisecond,
	}, log.Nop())

	ctx := context.Background()
	require.NoError(t, m.RecordRequest(ctx))
	assert.Equal(t, 0, m.Rotations())

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, m.RecordRequest(ctx))
	assert.Equal(t, 1, m.Rotations())
}

func TestManagerDisabledNeverRotates(t *testing.T) {
	factory := sessiontest.NewSequenceFactory(sessiontest.New())
	m := session.NewManager(factory.Factory(), session.ManagerConfig{
		RotationInterval: 1,
		Disabled:         true,
	}, log.Nop())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, m.RecordRequest(ctx))
	}
	assert.Equal(t, 1, factory.Opened())
	assert.Equal(t, 0, m.Rotations())
	assert.Equal(t, 5, m.RequestCount())
}

func TestManagerForcedRotate(t *testing.T) {
	first := sessiontest.New()
	factory := sessiontest.NewSequenceFactory(first, sessiontest.New())
	m := session.NewManager(factory.Factory(), session.ManagerConfig{}, log.Nop())

	ctx := context.Background()
	_, err := m.Current(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Rotate(ctx))
	assert.Equal(t, 1, m.Rotations())
	assert.True(t, first.Closed)
	assert.Equal(t, 2, factory.Opened())
}

func TestManagerRotationGetsFreshIdentity(t *testing.T) {
	factory := sessiontest.NewSequenceFactory(sessiontest.New(), sessiontest.New())
	m := session.NewManager(factory.Factory(), session.ManagerConfig{RotationInterval: 1}, log.Nop())

	ctx := context.Background()
	require.NoError(t, m.RecordRequest(ctx))

	require.Len(t, factory.Identities, 2)
	assert.NotEqual(t, factory.Identities[0].ID, factory.Identities[1].ID)
	for _, id := range factory.Identities {
		assert.NotEmpty(t, id.UserAgent)
		assert.NotEmpty(t, id.Platform)
		assert.Positive(t, id.ViewportWidth)
	}
}

func TestManagerClose(t *testing.T) {
	sess := sessiontest.New()
	m := session.NewManager(sessiontest.Factory(sess), session.ManagerConfig{}, log.Nop())

	ctx := context.Background()
	require.NoError(t, m.Close(ctx), "closing before any open is a no-op")

	_, err := m.Current(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Close(ctx))
	assert.True(t, sess.Closed)
	require.NoError(t, m.Close(ctx), "double close is safe")
}

func TestNewIdentityPersonaConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seen := map[string]bool{}

	for i := 0; i < 50; i++ {
		id := session.NewIdentity(rng)
		require.NotEmpty(t, id.ID)
		assert.False(t, seen[id.ID], "identity IDs must be unique")
		seen[id.ID] = true

		assert.NotEmpty(t, id.UserAgent)
		assert.NotEmpty(t, id.Languages)
		assert.Positive(t, id.ViewportWidth)
		assert.Positive(t, id.ViewportHeight)

		// UA and platform must tell the same story.
		switch id.Platform {
		case "Win32":
			assert.Contains(t, id.UserAgent, "Windows NT")
		case "MacIntel":
			assert.Contains(t, id.UserAgent, "Macintosh")
		case "Linux x86_64":
			assert.Contains(t, id.UserAgent, "Linux")
		default:
			t.Fatalf("unexpected platform %q", id.Platform)
		}
	}
}
