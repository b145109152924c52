package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklight/tasklight/internal/config"
	"github.com/tasklight/tasklight/internal/tasks"
)

// stubService is a tasks.Service that records nothing; only identity matters
// for these tests.
type stubService struct {
	tasks.Service
	name string
}

func newTestContext(t *testing.T) *ServerContext {
	t.Helper()
	sc := NewServerContext(t.Context(), config.New(t.TempDir()))
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestTasksServiceLazyConstruction(t *testing.T) {
	sc := newTestContext(t)

	var builds atomic.Int32
	sc.newService = func(ctx context.Context) (tasks.Service, error) {
		builds.Add(1)
		return &stubService{name: "built"}, nil
	}

	// Nothing is built until the first call.
	assert.Equal(t, int32(0), builds.Load())

	svc, err := sc.TasksService(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, svc)
	assert.Equal(t, int32(1), builds.Load())

	// Second call reuses the cached service.
	again, err := sc.TasksService(t.Context())
	require.NoError(t, err)
	assert.Same(t, svc, again)
	assert.Equal(t, int32(1), builds.Load())
}

func TestTasksServiceFailureNotCached(t *testing.T) {
	sc := newTestContext(t)

	var builds atomic.Int32
	sc.newService = func(ctx context.Context) (tasks.Service, error) {
		if builds.Add(1) == 1 {
			return nil, fmt.Errorf("authorization declined")
		}
		return &stubService{}, nil
	}

	_, err := sc.TasksService(t.Context())
	require.Error(t, err)

	// The failed attempt is not cached; the retry constructs again.
	svc, err := sc.TasksService(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, svc)
	assert.Equal(t, int32(2), builds.Load())
}

func TestTasksServiceConcurrentFirstUse(t *testing.T) {
	sc := newTestContext(t)

	var builds atomic.Int32
	sc.newService = func(ctx context.Context) (tasks.Service, error) {
		builds.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &stubService{}, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	services := make([]tasks.Service, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc, err := sc.TasksService(context.Background())
			assert.NoError(t, err)
			services[i] = svc
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for i := 1; i < workers; i++ {
		assert.Same(t, services[0], services[i])
	}
}

func TestSetTasksService(t *testing.T) {
	sc := newTestContext(t)

	injected := &stubService{name: "injected"}
	sc.SetTasksService(injected)

	svc, err := sc.TasksService(t.Context())
	require.NoError(t, err)
	assert.Same(t, injected, svc)
}

func TestShutdownIdempotent(t *testing.T) {
	sc := NewServerContext(t.Context(), config.New(t.TempDir()))

	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())

	select {
	case <-sc.Context().Done():
	default:
		t.Fatal("expected server context to be cancelled after shutdown")
	}
}
