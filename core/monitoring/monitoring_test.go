package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeMonitor struct {
	mu     sync.Mutex
	errs   []error
	panics []any
	done   chan struct{}
}

func (f *fakeMonitor) CaptureException(err error, _ map[string]string) {
	f.mu.Lock()
	f.errs = append(f.errs, err)
	f.mu.Unlock()
}

func (f *fakeMonitor) CapturePanic(v any) {
	f.mu.Lock()
	f.panics = append(f.panics, v)
	f.mu.Unlock()
	if f.done != nil {
		close(f.done)
	}
}

func (f *fakeMonitor) Flush(time.Duration) {}

func TestCaptureExceptionIgnoresNil(t *testing.T) {
	f := &fakeMonitor{}
	Init(f)
	defer Init(NopMonitor{})
	CaptureException(nil, nil)
	CaptureException(errors.New("boom"), map[string]string{"component": "test"})
	if len(f.errs) != 1 {
		t.Fatalf("expected 1 captured error, got %d", len(f.errs))
	}
}

func TestGoReportsPanic(t *testing.T) {
	f := &fakeMonitor{done: make(chan struct{})}
	Init(f)
	defer Init(NopMonitor{})
	Go(func() { panic("kaboom") })
	select {
	case <-f.done:
	case <-time.After(time.Second):
		t.Fatal("panic not reported")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.panics) != 1 || f.panics[0] != "kaboom" {
		t.Fatalf("unexpected panics %v", f.panics)
	}
}

func TestRecoverRepanics(t *testing.T) {
	f := &fakeMonitor{}
	Init(f)
	defer Init(NopMonitor{})
	defer func() {
		if r := recover(); r != "again" {
			t.Fatalf("expected re-panic, got %v", r)
		}
		if len(f.panics) != 1 {
			t.Fatalf("panic not captured")
		}
	}()
	func() {
		defer Recover()
		panic("again")
	}()
}
