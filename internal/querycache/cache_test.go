package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStore() *Store {
	return NewStore(zerolog.Nop())
}

func TestConcurrentReadsShareOneFetch(t *testing.T) {
	s := newTestStore()
	key := DetailKey("sys-1")

	var fetches int32
	entered := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&fetches, 1)
		close(entered)
		<-release
		return "payload", nil
	}
	joiner := func(ctx context.Context) (any, error) {
		t.Error("joined read must not issue its own fetch")
		return nil, nil
	}

	var wg sync.WaitGroup
	results := make([]any, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = s.Read(context.Background(), key, time.Minute, fetch)
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = s.Read(context.Background(), key, time.Minute, joiner)
	}()

	// Give the second read time to join the in-flight call, then let the
	// single fetch finish.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Fatalf("expected exactly one fetch, got %d", got)
	}
	for i, r := range results {
		if r != "payload" {
			t.Fatalf("reader %d got %v, want shared payload", i, r)
		}
	}
}

func TestFreshHitSkipsFetch(t *testing.T) {
	s := newTestStore()
	key := SummaryKey("sys-2")
	var fetches int
	fetch := func(ctx context.Context) (any, error) {
		fetches++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := s.Read(context.Background(), key, time.Minute, fetch)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if v != 42 {
			t.Fatalf("read %d: got %v", i, v)
		}
	}
	if fetches != 1 {
		t.Fatalf("fresh entry must be served from cache, got %d fetches", fetches)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	s := newTestStore()
	key := ListKey("state=open")
	var fetches int
	fetch := func(ctx context.Context) (any, error) {
		fetches++
		return fetches, nil
	}

	if _, err := s.Read(context.Background(), key, time.Hour, fetch); err != nil {
		t.Fatal(err)
	}
	s.Invalidate(key)
	v, err := s.Read(context.Background(), key, time.Hour, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 || fetches != 2 {
		t.Fatalf("invalidate must force a refetch despite the threshold: v=%v fetches=%d", v, fetches)
	}
}

func TestInvalidateKindMarksAllParamsStale(t *testing.T) {
	s := newTestStore()
	a := ListKey("state=open")
	b := ListKey("priority=high")
	var fetches int
	fetch := func(ctx context.Context) (any, error) {
		fetches++
		return fetches, nil
	}
	s.Read(context.Background(), a, time.Hour, fetch)
	s.Read(context.Background(), b, time.Hour, fetch)

	s.InvalidateKind(KindIncidentList)

	s.Read(context.Background(), a, time.Hour, fetch)
	s.Read(context.Background(), b, time.Hour, fetch)
	if fetches != 4 {
		t.Fatalf("both list entries must refetch after kind invalidation, got %d fetches", fetches)
	}
}

func TestFailedFetchKeepsLastGoodPayload(t *testing.T) {
	s := newTestStore()
	key := DetailKey("sys-3")

	if _, err := s.Read(context.Background(), key, time.Hour, func(ctx context.Context) (any, error) {
		return "good", nil
	}); err != nil {
		t.Fatal(err)
	}
	s.Invalidate(key)

	wantErr := errors.New("upstream down")
	_, err := s.Read(context.Background(), key, time.Hour, func(ctx context.Context) (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	snap, ok := s.Peek(key)
	if !ok {
		t.Fatal("entry must still exist")
	}
	if snap.Status != StatusError {
		t.Fatalf("status = %v, want error", snap.Status)
	}
	if snap.Payload != "good" {
		t.Fatalf("stale payload must survive a failed fetch, got %v", snap.Payload)
	}
	if snap.Err == nil {
		t.Fatal("error must be recorded alongside the stale payload")
	}
}

func TestRefreshSupersedesInFlightFetch(t *testing.T) {
	s := newTestStore()
	key := DetailKey("sys-4")

	started := make(chan struct{})
	release := make(chan struct{})
	slow := func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return "old", nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Read(context.Background(), key, time.Minute, slow)
	}()
	<-started

	// A manual refresh races the in-flight fetch and must win.
	v, err := s.Refresh(context.Background(), key, func(ctx context.Context) (any, error) {
		return "new", nil
	})
	if err != nil || v != "new" {
		t.Fatalf("refresh: v=%v err=%v", v, err)
	}

	close(release)
	<-done

	snap, _ := s.Peek(key)
	if snap.Payload != "new" {
		t.Fatalf("late response must be discarded, cache holds %v", snap.Payload)
	}
	if snap.Status != StatusSuccess {
		t.Fatalf("status = %v, want success", snap.Status)
	}
}

func TestReadAsTypes(t *testing.T) {
	s := newTestStore()
	key := HistoryKey("sys-5")
	got, err := ReadAs(context.Background(), s, key, time.Minute, func(ctx context.Context) ([]string, error) {
		return []string{"created", "assigned"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "created" {
		t.Fatalf("got %v", got)
	}
}
