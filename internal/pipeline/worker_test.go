package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/forecast-viewer/internal/nws"
)

// blockingSource holds the point lookup until release is closed.
type blockingSource struct {
	fakeSource
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSource) Point(ctx context.Context, lat, lon float64) (nws.Point, error) {
	close(b.entered)
	<-b.release
	return b.fakeSource.Point(ctx, lat, lon)
}

func TestWorkerRejectsSecondStart(t *testing.T) {
	src := &blockingSource{
		fakeSource: fakeSource{pointErr: &nws.TransportError{URL: "u", Err: errors.New("offline")}},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	p, _, _ := newTestPipeline(t, src)
	w := NewWorker(p, time.Second, zap.NewNop())

	results := make(chan Result, 2)
	id, err := w.Start(testLocation, func(r Result) { results <- r })
	if err != nil || id == "" {
		t.Fatalf("first start: %q, %v", id, err)
	}

	<-src.entered
	if !w.Running() || w.Stage() != StageResolvingPoint {
		t.Fatalf("running=%v stage=%s", w.Running(), w.Stage())
	}
	if _, err := w.Start(testLocation, func(r Result) { results <- r }); !errors.Is(err, ErrFetchInProgress) {
		t.Fatalf("second start: %v", err)
	}

	close(src.release)
	res := <-results
	if res.RunID != id || res.Success {
		t.Fatalf("unexpected result %+v", res)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if w.Running() || w.Stage() != StageFailed {
		t.Fatalf("after run: running=%v stage=%s", w.Running(), w.Stage())
	}
	select {
	case r := <-results:
		t.Fatalf("notify called twice: %+v", r)
	default:
	}
}

func TestWorkerCompletesAndRestarts(t *testing.T) {
	srv := newFakeNWS(t, dailyDoc, hourlyDoc)
	client := nws.NewClient(nws.Options{BaseURL: srv.URL}, zap.NewNop())
	p, _, _ := newTestPipeline(t, client)
	w := NewWorker(p, 0, zap.NewNop())

	for i := 0; i < 2; i++ {
		results := make(chan Result, 1)
		id, err := w.Start(testLocation, func(r Result) { results <- r })
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		res := <-results
		if !res.Success || res.RunID != id {
			t.Fatalf("run %d: %+v", i, res)
		}
		if err := w.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
		if w.Stage() != StageCompleted || w.RunID() != id {
			t.Fatalf("run %d: stage=%s id=%s", i, w.Stage(), w.RunID())
		}
	}
}

func TestWorkerReleasedAfterNotifyPanics(t *testing.T) {
	src := &fakeSource{pointErr: &nws.TransportError{URL: "u", Err: errors.New("offline")}}
	p, _, _ := newTestPipeline(t, src)
	w := NewWorker(p, time.Second, zap.NewNop())

	if _, err := w.Start(testLocation, func(Result) { panic("notify blew up") }); err != nil {
		t.Fatalf("first start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if w.Running() {
		t.Fatal("worker still running after notify panicked")
	}

	results := make(chan Result, 1)
	id, err := w.Start(testLocation, func(r Result) { results <- r })
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if res := <-results; res.RunID != id {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestOutcomeLabels(t *testing.T) {
	cases := map[string]Result{
		"success":           {Success: true},
		"invalid_format":    {Err: ErrInvalidFormat},
		"persist_failure":   {Err: ErrPersist},
		"transport_failure": {Err: ErrTransport},
	}
	for want, res := range cases {
		if got := outcome(res); got != want {
			t.Errorf("outcome(%+v) = %q, want %q", res, got, want)
		}
	}
}
