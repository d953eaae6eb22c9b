package client

import (
	"context"
	"testing"
	"time"

	"github.com/AGDonato/Synapse-sub011/pkg/structs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLockGranted(t *testing.T) {
	srv := newStubServer(t)
	c := New(testConfig(srv.url()))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()
	require.NoError(t, c.JoinEntity(context.Background(), "demanda", 1))

	granted, err := c.AcquireLock(context.Background(), "demanda", 1, "")
	require.NoError(t, err)
	assert.True(t, granted)
	assert.True(t, c.IsLocked("demanda", 1, ""))
	assert.Equal(t, "user123", c.LockOwner("demanda", 1, ""))

	// Release and re-acquire by the same user must succeed.
	c.ReleaseLock("demanda", 1, "")
	granted, err = c.AcquireLock(context.Background(), "demanda", 1, "")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestAcquireLockDenied(t *testing.T) {
	srv := newStubServer(t)

	a := New(testConfig(srv.url()))
	require.NoError(t, a.Connect(context.Background()))
	defer a.Disconnect()
	require.NoError(t, a.JoinEntity(context.Background(), "demanda", 1))

	cfgB := testConfig(srv.url())
	cfgB.UserID = "user456"
	cfgB.UserName = "Second User"
	b := New(cfgB)
	require.NoError(t, b.Connect(context.Background()))
	defer b.Disconnect()
	require.NoError(t, b.JoinEntity(context.Background(), "demanda", 1))

	denial := make(chan structs.Message, 1)
	b.On(structs.TypeLockFailed, func(payload any) {
		if msg, ok := payload.(structs.Message); ok {
			select {
			case denial <- msg:
			default:
			}
		}
	})

	granted, err := a.AcquireLock(context.Background(), "demanda", 1, "sged")
	require.NoError(t, err)
	require.True(t, granted)

	// The grant broadcast reaches the other room member.
	waitFor(t, time.Second, "grant mirrored at b", func() bool {
		return b.IsLocked("demanda", 1, "sged")
	})
	assert.Equal(t, "user123", b.LockOwner("demanda", 1, "sged"))

	granted, err = b.AcquireLock(context.Background(), "demanda", 1, "sged")
	require.NoError(t, err)
	assert.False(t, granted)

	select {
	case msg := <-denial:
		assert.Equal(t, "user123", msg.LockedBy)
		assert.Contains(t, msg.Reason, "Test User")
	case <-time.After(time.Second):
		t.Fatal("denial never published")
	}
}

func TestReleaseThenReacquire(t *testing.T) {
	srv := newStubServer(t)

	a := New(testConfig(srv.url()))
	require.NoError(t, a.Connect(context.Background()))
	defer a.Disconnect()
	require.NoError(t, a.JoinEntity(context.Background(), "demanda", 1))

	cfgB := testConfig(srv.url())
	cfgB.UserID = "user456"
	cfgB.UserName = "Second User"
	b := New(cfgB)
	require.NoError(t, b.Connect(context.Background()))
	defer b.Disconnect()
	require.NoError(t, b.JoinEntity(context.Background(), "demanda", 1))

	granted, err := a.AcquireLock(context.Background(), "demanda", 1, "")
	require.NoError(t, err)
	require.True(t, granted)

	waitFor(t, time.Second, "grant mirrored at b", func() bool {
		return b.IsLocked("demanda", 1, "")
	})

	a.ReleaseLock("demanda", 1, "")
	assert.False(t, a.IsLocked("demanda", 1, ""))

	waitFor(t, time.Second, "release mirrored at b", func() bool {
		return !b.IsLocked("demanda", 1, "")
	})

	granted, err = b.AcquireLock(context.Background(), "demanda", 1, "")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestLockGranularityPerField(t *testing.T) {
	srv := newStubServer(t)
	c := New(testConfig(srv.url()))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()
	require.NoError(t, c.JoinEntity(context.Background(), "demanda", 1))

	granted, err := c.AcquireLock(context.Background(), "demanda", 1, "sged")
	require.NoError(t, err)
	require.True(t, granted)

	// A field lock does not cover the entity or its other fields.
	assert.True(t, c.IsLocked("demanda", 1, "sged"))
	assert.False(t, c.IsLocked("demanda", 1, ""))
	assert.False(t, c.IsLocked("demanda", 1, "autos"))
}

func TestLeaveEntityReleasesOwnLocks(t *testing.T) {
	srv := newStubServer(t)

	a := New(testConfig(srv.url()))
	require.NoError(t, a.Connect(context.Background()))
	defer a.Disconnect()
	require.NoError(t, a.JoinEntity(context.Background(), "demanda", 1))

	cfgB := testConfig(srv.url())
	cfgB.UserID = "user456"
	cfgB.UserName = "Second User"
	b := New(cfgB)
	require.NoError(t, b.Connect(context.Background()))
	defer b.Disconnect()
	require.NoError(t, b.JoinEntity(context.Background(), "demanda", 1))

	granted, err := b.AcquireLock(context.Background(), "demanda", 1, "sged")
	require.NoError(t, err)
	require.True(t, granted)
	waitFor(t, time.Second, "grant mirrored at a", func() bool {
		return a.IsLocked("demanda", 1, "sged")
	})

	b.LeaveEntity("demanda", 1)

	waitFor(t, time.Second, "lock released at a", func() bool {
		return !a.IsLocked("demanda", 1, "sged")
	})
	assert.False(t, b.IsLocked("demanda", 1, "sged"))
}
