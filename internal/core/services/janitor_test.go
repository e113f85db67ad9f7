package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitor_SweepRemovesQueuedVectors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fileID := seedIndexedFile(t, env, "doomed.txt", []string{"one", "two"})
	_, _, err := env.purger.PurgeFile(ctx, fileID)
	require.NoError(t, err)
	require.Equal(t, 2, env.vectors.Len())

	janitor := NewJanitor(env.queue, env.vectors)
	require.NoError(t, janitor.Sweep(ctx))

	assert.Zero(t, env.vectors.Len())
	pending, err := env.queue.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestJanitor_SweepEmptyQueue(t *testing.T) {
	env := newTestEnv(t)
	janitor := NewJanitor(env.queue, env.vectors)
	assert.NoError(t, janitor.Sweep(context.Background()))
}

func TestJanitor_ReplayIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fileID := seedIndexedFile(t, env, "doomed.txt", []string{"only"})
	job, _, err := env.purger.PurgeFile(ctx, fileID)
	require.NoError(t, err)

	janitor := NewJanitor(env.queue, env.vectors)
	require.NoError(t, janitor.Sweep(ctx))
	require.Zero(t, env.vectors.Len())

	// Simulate an at-least-once replay of the same job after the
	// vectors are already gone.
	require.NoError(t, env.queue.Enqueue(ctx, job))
	require.NoError(t, janitor.Sweep(ctx))
	assert.Zero(t, env.vectors.Len())
}

func TestJanitor_StartStop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fileID := seedIndexedFile(t, env, "doomed.txt", []string{"one", "two"})
	_, _, err := env.purger.PurgeFile(ctx, fileID)
	require.NoError(t, err)

	janitor := NewJanitor(env.queue, env.vectors, WithJanitorInterval(10*time.Millisecond))
	janitor.Start(ctx)
	defer janitor.Stop()

	require.Eventually(t, func() bool {
		return env.vectors.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// Stop twice is safe, as is a second Start after Stop.
	janitor.Stop()
	janitor.Stop()
}
