package allocator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/dao/resource/memory"
)

func newLedger(t *testing.T, resources ...*model.Resource) *Service {
	t.Helper()
	ledger := New(memory.New())
	for _, r := range resources {
		require.NoError(t, ledger.Register(context.Background(), r))
	}
	return ledger
}

func TestService_Allocate(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name      string
		capacity  int
		usage     int
		units     int
		expectErr error
		expect    int
	}{
		{name: "fits", capacity: 2, usage: 0, units: 2, expect: 2},
		{name: "exhausted", capacity: 2, usage: 1, units: 2, expectErr: ErrResourceExhausted, expect: 1},
		{name: "zero units", capacity: 2, units: 0, expectErr: ErrInvalidUnits},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resources := memory.New()
			require.NoError(t, resources.Save(ctx, &model.Resource{ID: "room", Capacity: tc.capacity, CurrentUsage: tc.usage}))
			ledger := New(resources)
			err := ledger.Allocate(ctx, "room", tc.units)
			if tc.expectErr != nil {
				assert.True(t, errors.Is(err, tc.expectErr), "%v", err)
			} else {
				require.NoError(t, err)
			}
			r, err := ledger.Resource(ctx, "room")
			require.NoError(t, err)
			assert.Equal(t, tc.expect, r.CurrentUsage)
		})
	}
}

func TestService_Allocate_UnknownResource(t *testing.T) {
	ledger := newLedger(t)
	assert.ErrorIs(t, ledger.Allocate(context.Background(), "missing", 1), dao.ErrNotFound)
}

func TestService_TryAllocate(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, &model.Resource{ID: "device", Capacity: 1})
	ok, err := ledger.TryAllocate(ctx, "device", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = ledger.TryAllocate(ctx, "device", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	available, err := ledger.Available(ctx, "device")
	require.NoError(t, err)
	assert.Equal(t, 0, available)
}

func TestService_Release_Clamps(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, &model.Resource{ID: "room", Capacity: 3})
	require.NoError(t, ledger.Allocate(ctx, "room", 1))
	require.NoError(t, ledger.Release(ctx, "room", 1))
	require.NoError(t, ledger.Release(ctx, "room", 1))
	r, err := ledger.Resource(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, 0, r.CurrentUsage)
}

func TestService_Release_NotifiesListeners(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, &model.Resource{ID: "room", Capacity: 2})
	var notified []string
	var free []int
	ledger.OnRelease(func(ctx context.Context, resourceID string, available int) {
		notified = append(notified, resourceID)
		free = append(free, available)
	})
	require.NoError(t, ledger.Allocate(ctx, "room", 2))
	require.NoError(t, ledger.Release(ctx, "room", 1))
	assert.Equal(t, []string{"room"}, notified)
	assert.Equal(t, []int{1}, free)
}

func TestService_ConcurrentAllocate(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, &model.Resource{ID: "room", Capacity: 1})

	var wg sync.WaitGroup
	var success, exhausted int32
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := ledger.Allocate(ctx, "room", 1)
			switch {
			case err == nil:
				atomic.AddInt32(&success, 1)
			case errors.Is(err, ErrResourceExhausted):
				atomic.AddInt32(&exhausted, 1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.EqualValues(t, 1, success)
	assert.EqualValues(t, 1, exhausted)
	r, err := ledger.Resource(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, 1, r.CurrentUsage)
}

func TestService_ConcurrentHolders(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, &model.Resource{ID: "room", Capacity: 1})
	var holders, maxHolders int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				ok, err := ledger.TryAllocate(ctx, "room", 1)
				if err != nil || !ok {
					continue
				}
				current := atomic.AddInt32(&holders, 1)
				for {
					prev := atomic.LoadInt32(&maxHolders)
					if current <= prev || atomic.CompareAndSwapInt32(&maxHolders, prev, current) {
						break
					}
				}
				atomic.AddInt32(&holders, -1)
				assert.NoError(t, ledger.Release(ctx, "room", 1))
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, maxHolders, int32(1))
	r, err := ledger.Resource(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, 0, r.CurrentUsage)
}

func TestService_Register_PreservesUsage(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, &model.Resource{ID: "room", Capacity: 2})
	require.NoError(t, ledger.Allocate(ctx, "room", 2))
	assert.Error(t, ledger.Register(ctx, &model.Resource{ID: "room", Capacity: 1}))
	require.NoError(t, ledger.Register(ctx, &model.Resource{ID: "room", Capacity: 4}))
	available, err := ledger.Available(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, 2, available)
}
