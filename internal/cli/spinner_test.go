package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a buffer written by the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsMessage(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Running placement/annealing")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(out.String(), "Running placement/annealing") {
		t.Errorf("output %q does not contain the message", out.String())
	}
	if !strings.HasSuffix(out.String(), "\r") {
		t.Error("Stop should leave the line cleared")
	}
	if !s.Cancelled() {
		t.Error("Cancelled() should report true after Stop")
	}
	if s.Elapsed() < 200*time.Millisecond {
		t.Errorf("Elapsed() = %v", s.Elapsed())
	}
	s.Stop()
}

func TestSpinnerStopBeforeStart(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "idle")
	s.Stop()
	if out.String() != "" {
		t.Errorf("unexpected output %q", out.String())
	}
	if s.Elapsed() != 0 {
		t.Error("Elapsed() should be zero before Start")
	}
}

func TestSpinnerFollowsParentContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) }},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()
			var out syncBuffer
			s := newSpinnerTo(ctx, &out, "Routing")
			s.Start()
			if tt.name == "cancel" {
				cancel()
			}
			time.Sleep(100 * time.Millisecond)

			if !s.Cancelled() {
				t.Error("spinner should be cancelled with its parent")
			}
			s.Stop()
		})
	}
}
