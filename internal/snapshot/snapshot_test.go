package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wycliu/parkrwa-backend/internal/spaces"
	"github.com/wycliu/parkrwa-backend/pkg/logger"
)

type fakeKV struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
	getErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}}
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeKV) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeKV) SnapshotKey(scope string) string {
	return "parkrwa:snapshot:" + scope
}

type fakeService struct {
	allFn      func(ctx context.Context) ([]spaces.Space, error)
	paymentsFn func(ctx context.Context) ([]spaces.PaymentReceipt, error)
}

func (f *fakeService) FetchAll(ctx context.Context) ([]spaces.Space, error) {
	if f.allFn != nil {
		return f.allFn(ctx)
	}
	return nil, nil
}

func (f *fakeService) FetchOwned(context.Context, string) ([]spaces.Space, error) {
	return nil, nil
}

func (f *fakeService) FetchAvailable(context.Context) ([]spaces.Space, error) {
	return nil, nil
}

func (f *fakeService) FetchOne(context.Context, string) (*spaces.Space, error) {
	return nil, nil
}

func (f *fakeService) FetchLot(context.Context) (*spaces.Lot, error) {
	return nil, nil
}

func (f *fakeService) FetchPayments(ctx context.Context) ([]spaces.PaymentReceipt, error) {
	if f.paymentsFn != nil {
		return f.paymentsFn(ctx)
	}
	return nil, nil
}

func testSpace(id string) spaces.Space {
	return spaces.Space{
		ID:         id,
		Location:   "Level 2 Bay 14",
		HourlyRate: 2_000_000_000,
		Owner:      "0xab00000000000000000000000000000000000000000000000000000000000000",
	}
}

func TestStoreRoundTripSpaces(t *testing.T) {
	kv := newFakeKV()
	store, err := NewStore(kv, time.Minute)
	require.NoError(t, err)

	records := []spaces.Space{testSpace("0x1"), testSpace("0x2")}
	require.NoError(t, store.SaveSpaces(context.Background(), records))

	snap, err := store.LoadSpaces(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.NotEmpty(t, snap.PassID)
	assert.Equal(t, 2, snap.Count)
	require.Len(t, snap.Records, 2)
	assert.Equal(t, "0x1", snap.Records[0].ID)
	assert.Equal(t, uint64(2_000_000_000), snap.Records[0].HourlyRate)
}

func TestStoreRoundTripPayments(t *testing.T) {
	kv := newFakeKV()
	store, err := NewStore(kv, time.Minute)
	require.NoError(t, err)

	receipts := []spaces.PaymentReceipt{{SpaceID: "0x1", Hours: 3, TotalAmount: 6_000_000_000}}
	require.NoError(t, store.SavePayments(context.Background(), receipts))

	snap, err := store.LoadPayments(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, uint64(6_000_000_000), snap.Records[0].TotalAmount)
}

func TestStoreLoadMissingReturnsNil(t *testing.T) {
	store, err := NewStore(newFakeKV(), time.Minute)
	require.NoError(t, err)

	snap, err := store.LoadSpaces(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)

	payments, err := store.LoadPayments(context.Background())
	require.NoError(t, err)
	assert.Nil(t, payments)
}

func TestStoreNewerPassOverwritesOlder(t *testing.T) {
	kv := newFakeKV()
	store, err := NewStore(kv, time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.SaveSpaces(context.Background(), []spaces.Space{testSpace("0x1")}))
	require.NoError(t, store.SaveSpaces(context.Background(), []spaces.Space{testSpace("0x2"), testSpace("0x3")}))

	snap, err := store.LoadSpaces(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.Count)
	assert.Equal(t, "0x2", snap.Records[0].ID)
}

func TestRedisLockAcquireAndRelease(t *testing.T) {
	kv := newFakeKV()
	lock, err := NewRedisLock(kv, "parkrwa:lock:refresh", time.Second)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(context.Background()))

	ok, err = lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseSkipsForeignOwner(t *testing.T) {
	kv := newFakeKV()
	first, err := NewRedisLock(kv, "parkrwa:lock:refresh", time.Second)
	require.NoError(t, err)
	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate expiry followed by a second worker taking the lock.
	require.NoError(t, kv.Del(context.Background(), "parkrwa:lock:refresh"))
	second, err := NewRedisLock(kv, "parkrwa:lock:refresh", time.Second)
	require.NoError(t, err)
	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, first.Release(context.Background()))

	ok, err = first.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "second worker should still hold the lock")
}

func TestRefreshJobStoresBothViews(t *testing.T) {
	kv := newFakeKV()
	store, err := NewStore(kv, time.Minute)
	require.NoError(t, err)

	svc := &fakeService{
		allFn: func(context.Context) ([]spaces.Space, error) {
			return []spaces.Space{testSpace("0x1")}, nil
		},
		paymentsFn: func(context.Context) ([]spaces.PaymentReceipt, error) {
			return []spaces.PaymentReceipt{{SpaceID: "0x1", Hours: 2}}, nil
		},
	}
	job, err := NewRefreshJob(svc, store)
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))

	snap, err := store.LoadSpaces(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.Count)

	payments, err := store.LoadPayments(context.Background())
	require.NoError(t, err)
	require.NotNil(t, payments)
	assert.Equal(t, 1, payments.Count)
}

func TestRefreshJobFailedViewKeepsPreviousSnapshot(t *testing.T) {
	kv := newFakeKV()
	store, err := NewStore(kv, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.SaveSpaces(context.Background(), []spaces.Space{testSpace("0x1")}))

	svc := &fakeService{
		allFn: func(context.Context) ([]spaces.Space, error) {
			return nil, errors.New("event discovery unavailable")
		},
		paymentsFn: func(context.Context) ([]spaces.PaymentReceipt, error) {
			return []spaces.PaymentReceipt{{SpaceID: "0x2", Hours: 1}}, nil
		},
	}
	job, err := NewRefreshJob(svc, store)
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)

	snap, err := store.LoadSpaces(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "0x1", snap.Records[0].ID, "failed pass must not clobber the stored view")

	payments, err := store.LoadPayments(context.Background())
	require.NoError(t, err)
	require.NotNil(t, payments, "payment view refreshes independently")
}

func TestRunnerSkipsCycleWhenLockHeld(t *testing.T) {
	kv := newFakeKV()
	store, err := NewStore(kv, time.Minute)
	require.NoError(t, err)

	var runs int
	svc := &fakeService{
		allFn: func(context.Context) ([]spaces.Space, error) {
			runs++
			return nil, nil
		},
	}
	job, err := NewRefreshJob(svc, store)
	require.NoError(t, err)

	// Another worker already owns the lock.
	_, err = kv.SetNX(context.Background(), "parkrwa:lock:refresh", "other", time.Minute)
	require.NoError(t, err)

	lock, err := NewRedisLock(kv, "parkrwa:lock:refresh", time.Second)
	require.NoError(t, err)

	runner, err := NewRunner(RunnerParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Lock:     lock,
		Job:      job,
		Interval: time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, runner.runCycle(context.Background()))
	assert.Zero(t, runs, "cycle must be skipped while another worker holds the lock")
}

func TestRunnerRunsCycleWhenLockFree(t *testing.T) {
	kv := newFakeKV()
	store, err := NewStore(kv, time.Minute)
	require.NoError(t, err)

	var runs int
	svc := &fakeService{
		allFn: func(context.Context) ([]spaces.Space, error) {
			runs++
			return []spaces.Space{testSpace("0x1")}, nil
		},
	}
	job, err := NewRefreshJob(svc, store)
	require.NoError(t, err)

	lock, err := NewRedisLock(kv, "parkrwa:lock:refresh", time.Second)
	require.NoError(t, err)

	runner, err := NewRunner(RunnerParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Lock:     lock,
		Job:      job,
		Interval: time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, runner.runCycle(context.Background()))
	assert.Equal(t, 1, runs)

	// Lock released after the cycle so the next run can proceed.
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}
