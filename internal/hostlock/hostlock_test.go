// SPDX-License-Identifier: MPL-2.0

//go:build unix

package hostlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(WithDir(t.TempDir()), WithPollInterval(5*time.Millisecond))
}

func TestAcquire_UncontendedSucceeds(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	h, err := m.Acquire(context.Background(), "svc", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.Release()
}

func TestAcquire_SameNameExcludes(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	h, err := m.Acquire(context.Background(), "svc", time.Second)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	// flock is per-fd, so a second Acquire from the same process models a
	// second session: it must time out while the first handle is held.
	_, err = m.Acquire(context.Background(), "svc", 30*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got: %v", err)
	}
	var te *TimeoutError
	if !errors.As(err, &te) || te.Name != "svc" {
		t.Fatalf("expected *TimeoutError for %q, got: %v", "svc", err)
	}

	h.Release()

	h2, err := m.Acquire(context.Background(), "svc", time.Second)
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	h2.Release()
}

func TestAcquire_DifferentNamesIndependent(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	h1, err := m.Acquire(context.Background(), "svc", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer h1.Release()

	h2, err := m.Acquire(context.Background(), "hive", time.Second)
	if err != nil {
		t.Fatalf("locks with different names must not contend: %v", err)
	}
	h2.Release()
}

func TestAcquire_WaiterGetsLockAfterRelease(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	h, err := m.Acquire(context.Background(), "svc", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		h2, err := m.Acquire(context.Background(), "svc", 5*time.Second)
		if err == nil {
			h2.Release()
			close(acquired)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	h.Release()

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never acquired the lock after release")
	}
}

func TestAcquire_ContextCanceledWhileWaiting(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	h, err := m.Acquire(context.Background(), "svc", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer h.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	_, err = m.Acquire(ctx, "svc", 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
}

func TestWith_ReleasesOnError(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	errFail := errors.New("guarded block failed")

	err := m.With(context.Background(), "svc", time.Second, func(context.Context) error {
		return errFail
	})
	if !errors.Is(err, errFail) {
		t.Fatalf("expected guarded error, got: %v", err)
	}

	// The lock must be free again even though the block failed.
	h, err := m.Acquire(context.Background(), "svc", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("lock leaked after failed With block: %v", err)
	}
	h.Release()
}

func TestRelease_Idempotent(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	h, err := m.Acquire(context.Background(), "svc", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.Release()
	h.Release() // must be a no-op
}

func TestAcquire_ConcurrentHoldersNeverOverlap(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	var (
		mu      sync.Mutex
		holders int
		maxSeen int
	)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.With(context.Background(), "svc", 10*time.Second, func(context.Context) error {
				mu.Lock()
				holders++
				if holders > maxSeen {
					maxSeen = holders
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				holders--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("With failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("observed %d simultaneous holders, want 1", maxSeen)
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in, want string
	}{
		{"image-servicing", "image-servicing"},
		{"hive load/SYSTEM", "hive-load-SYSTEM"},
		{"a b:c", "a-b-c"},
	}
	for _, tc := range cases {
		if got := sanitizeName(tc.in); got != tc.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
