package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects handler calls.
type recorder struct {
	mu       sync.Mutex
	results  []string
	errs     []error
	loadings []bool
}

func (r *recorder) handlers() Handlers[string] {
	return Handlers[string]{
		OnLoading: func(loading bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.loadings = append(r.loadings, loading)
		},
		OnResult: func(v string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.results = append(r.results, v)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
	}
}

func (r *recorder) snapshot() ([]string, []error, []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.results...), append([]error(nil), r.errs...), append([]bool(nil), r.loadings...)
}

// lateFetch ignores cancellation and resolves only when release is closed,
// the way a response already on the wire still arrives.
func lateFetch(v string, release <-chan struct{}) Fetch[string] {
	return func(ctx context.Context) (string, error) {
		<-release
		return v, nil
	}
}

func TestSlot_RapidTriggersApplyOnce(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"single", 1},
		{"two", 2},
		{"burst", 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := NewSlot[string]("overlay", discardLogger())
			rec := &recorder{}

			releases := make([]chan struct{}, tt.n)
			for i := 0; i < tt.n; i++ {
				releases[i] = make(chan struct{})
				if _, err := slot.Start(context.Background(), lateFetch(string(rune('a'+i%26)), releases[i]), rec.handlers()); err != nil {
					t.Fatalf("Start: %v", err)
				}
			}
			// Resolve newest first so every stale result arrives after the winner.
			for i := tt.n - 1; i >= 0; i-- {
				close(releases[i])
			}
			slot.Wait()

			if got := slot.Applied(); got != 1 {
				t.Fatalf("Applied() = %d, want 1", got)
			}
			results, errs, _ := rec.snapshot()
			want := string(rune('a' + (tt.n-1)%26))
			if len(results) != 1 || results[0] != want {
				t.Errorf("results = %v, want [%s]", results, want)
			}
			if len(errs) != 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestSlot_LaterRequestWinsRegardlessOfResolutionOrder(t *testing.T) {
	slot := NewSlot[string]("overlay", discardLogger())
	rec := &recorder{}

	releaseA := make(chan struct{})
	releaseB := make(chan struct{})

	reqA, err := slot.Start(context.Background(), lateFetch("bbox-A", releaseA), rec.handlers())
	if err != nil {
		t.Fatalf("Start A: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	reqB, err := slot.Start(context.Background(), lateFetch("bbox-B", releaseB), rec.handlers())
	if err != nil {
		t.Fatalf("Start B: %v", err)
	}

	close(releaseB)
	<-reqB.Done()
	close(releaseA)
	<-reqA.Done()

	results, _, _ := rec.snapshot()
	if len(results) != 1 || results[0] != "bbox-B" {
		t.Errorf("displayed = %v, want [bbox-B]", results)
	}
	if reqB.Generation() <= reqA.Generation() {
		t.Errorf("generation did not advance: A=%d B=%d", reqA.Generation(), reqB.Generation())
	}
}

func TestSlot_StartCancelsPrevious(t *testing.T) {
	slot := NewSlot[string]("tooltip", discardLogger())
	rec := &recorder{}

	sawCancel := make(chan struct{})
	_, err := slot.Start(context.Background(), func(ctx context.Context) (string, error) {
		<-ctx.Done()
		close(sawCancel)
		return "", ctx.Err()
	}, rec.handlers())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	release := make(chan struct{})
	close(release)
	if _, err := slot.Start(context.Background(), lateFetch("second", release), rec.handlers()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-sawCancel:
	case <-time.After(time.Second):
		t.Fatal("previous request was not cancelled")
	}
	slot.Wait()

	results, errs, _ := rec.snapshot()
	if len(results) != 1 || results[0] != "second" {
		t.Errorf("results = %v", results)
	}
	if len(errs) != 0 {
		t.Errorf("abort surfaced as error: %v", errs)
	}
}

func TestSlot_ErrorsAndLoading(t *testing.T) {
	boom := errors.New("API 500: boom")

	tests := []struct {
		name        string
		err         error
		wantErrs    int
		wantResults int
	}{
		{"real failure is surfaced", boom, 1, 0},
		{"abort is swallowed", context.Canceled, 0, 0},
		{"wrapped abort is swallowed", errors.Join(errors.New("fetch"), context.Canceled), 0, 0},
		{"success", nil, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := NewSlot[string]("overlay", discardLogger())
			rec := &recorder{}

			_, err := slot.Start(context.Background(), func(ctx context.Context) (string, error) {
				if tt.err != nil {
					return "", tt.err
				}
				return "ok", nil
			}, rec.handlers())
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			slot.Wait()

			results, errs, loadings := rec.snapshot()
			if len(errs) != tt.wantErrs {
				t.Errorf("errors = %v, want %d", errs, tt.wantErrs)
			}
			if tt.wantErrs == 1 && !errors.Is(errs[0], boom) {
				t.Errorf("error = %v, want %v", errs[0], boom)
			}
			if len(results) != tt.wantResults {
				t.Errorf("results = %v, want %d", results, tt.wantResults)
			}
			if len(loadings) != 2 || !loadings[0] || loadings[1] {
				t.Errorf("loading transitions = %v, want [true false]", loadings)
			}
			if slot.InFlight() {
				t.Error("slot still reports a request in flight")
			}
		})
	}
}

func TestSlot_CancelClearsLoading(t *testing.T) {
	slot := NewSlot[string]("overlay", discardLogger())
	rec := &recorder{}

	release := make(chan struct{})
	if _, err := slot.Start(context.Background(), lateFetch("never shown", release), rec.handlers()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !slot.InFlight() {
		t.Fatal("expected a request in flight")
	}

	slot.Cancel()
	close(release)
	slot.Wait()

	results, errs, loadings := rec.snapshot()
	if len(results) != 0 || len(errs) != 0 {
		t.Errorf("cancelled request applied: results=%v errs=%v", results, errs)
	}
	if len(loadings) != 2 || loadings[1] {
		t.Errorf("loading transitions = %v, want [true false]", loadings)
	}
	if slot.Applied() != 0 {
		t.Errorf("Applied() = %d, want 0", slot.Applied())
	}
}

func TestSlot_CloseAbortsAndRejects(t *testing.T) {
	slot := NewSlot[string]("overlay", discardLogger())
	rec := &recorder{}

	started := make(chan struct{})
	if _, err := slot.Start(context.Background(), func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}, rec.handlers()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started

	done := make(chan struct{})
	go func() {
		slot.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not abort the outstanding request")
	}

	if _, err := slot.Start(context.Background(), lateFetch("x", nil), rec.handlers()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close: err = %v, want ErrClosed", err)
	}

	results, errs, _ := rec.snapshot()
	if len(results) != 0 || len(errs) != 0 {
		t.Errorf("teardown applied state: results=%v errs=%v", results, errs)
	}
}

func TestSlot_ParentCancellationDiscards(t *testing.T) {
	slot := NewSlot[string]("tooltip", discardLogger())
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	if _, err := slot.Start(ctx, lateFetch("stale", release), rec.handlers()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	close(release)
	slot.Wait()

	results, errs, loadings := rec.snapshot()
	if len(results) != 0 || len(errs) != 0 {
		t.Errorf("aborted request applied: results=%v errs=%v", results, errs)
	}
	if len(loadings) != 2 || loadings[1] {
		t.Errorf("loading transitions = %v, want [true false]", loadings)
	}
}
