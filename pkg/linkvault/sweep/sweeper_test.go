package sweep_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkvault/linkvault/pkg/linkvault"
	"github.com/linkvault/linkvault/pkg/linkvault/repo/memory"
	memorystorage "github.com/linkvault/linkvault/pkg/linkvault/storage/memory"
	"github.com/linkvault/linkvault/pkg/linkvault/sweep"
)

type fixture struct {
	svc     linkvault.Service
	repo    *memory.Repository
	store   *memorystorage.Backend
	clock   *fakeClock
	sweeper *sweep.Sweeper
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setup(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	repo := memory.New()
	store := memorystorage.New()

	svc, err := linkvault.New(
		linkvault.WithRepository(repo),
		linkvault.WithBlobStore("local", store),
		linkvault.WithLocalBackend("local"),
		linkvault.WithClock(clock.Now),
	)
	require.NoError(t, err)

	sweeper := sweep.New(svc, repo, sweep.Config{Enabled: true}, sweep.WithClock(clock.Now))

	return &fixture{svc: svc, repo: repo, store: store, clock: clock, sweeper: sweeper}
}

func TestSweepRemovesExpiredRecords(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	expiring, err := f.svc.Create(ctx, linkvault.CreateRequest{Text: "short", ExpiresInMinutes: 5})
	require.NoError(t, err)
	durable, err := f.svc.Create(ctx, linkvault.CreateRequest{Text: "long", ExpiresInMinutes: 60})
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)

	stats, err := f.sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Scanned)
	assert.Equal(t, uint64(1), stats.Deleted)
	assert.Equal(t, uint64(0), stats.Failed)

	_, err = f.repo.GetRecord(ctx, expiring.ID)
	assert.ErrorIs(t, err, linkvault.ErrNotFound)

	_, err = f.repo.GetRecord(ctx, durable.ID)
	assert.NoError(t, err)
}

func TestSweepRemovesExpiredBlobs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, linkvault.CreateRequest{
		File:             &linkvault.FileUpload{Reader: strings.NewReader("blob bytes"), FileName: "f.bin"},
		ExpiresInMinutes: 5,
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.store.Len())

	f.clock.Advance(10 * time.Minute)

	stats, err := f.sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Deleted)
	assert.Equal(t, 0, f.store.Len())
}

func TestSweepNothingExpired(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, linkvault.CreateRequest{Text: "fresh", ExpiresInMinutes: 60})
	require.NoError(t, err)

	stats, err := f.sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.Scanned)
	assert.Equal(t, uint64(0), stats.Deleted)
	assert.NotEmpty(t, stats.Summary())
}

func TestSweeperStartStop(t *testing.T) {
	f := setup(t)

	f.sweeper.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.sweeper.Stop(ctx))
}

func TestSweeperDisabled(t *testing.T) {
	f := setup(t)
	disabled := sweep.New(f.svc, f.repo, sweep.Config{Enabled: false})

	disabled.Start()
	require.NoError(t, disabled.Stop(context.Background()))
}
