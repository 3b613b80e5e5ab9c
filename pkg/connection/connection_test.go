package connection

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/zwavego/zwsclient/internal/testserver"
	"github.com/zwavego/zwsclient/pkg/model"
	"github.com/zwavego/zwsclient/pkg/schema"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff()

		// Expected sequence (without jitter): 1s, 2s, 4s, 8s, 16s, 32s, 60s, 60s...
		expected := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			32 * time.Second,
			60 * time.Second,
			60 * time.Second, // Should stay at max
		}

		for i, exp := range expected {
			// Get the base (current) value before adding jitter
			base := b.Current()
			_ = b.Next() // Advance

			// Allow for some floating point imprecision
			if base < exp-time.Millisecond || base > exp+time.Millisecond {
				t.Errorf("Attempt %d: base = %v, want %v", i, base, exp)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoff()

		// Collect multiple samples to verify jitter is being applied
		samples := make([]time.Duration, 10)
		for i := range samples {
			samples[i] = b.Peek()
		}

		// All samples should be between 1s and 1.25s (with jitter)
		for i, s := range samples {
			if s < 1*time.Second || s > time.Duration(float64(1*time.Second)*1.25)+time.Millisecond {
				t.Errorf("Sample %d: %v out of expected range [1s, 1.25s]", i, s)
			}
		}

		// At least some samples should be different (jitter should vary)
		allSame := true
		for i := 1; i < len(samples); i++ {
			if samples[i] != samples[0] {
				allSame = false
				break
			}
		}
		if allSame {
			t.Error("All jittered samples are identical - jitter may not be working")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff()

		// Advance a few times
		for i := 0; i < 5; i++ {
			b.Next()
		}

		if b.Current() <= InitialBackoff {
			t.Error("Backoff should have increased")
		}

		// Reset
		b.Reset()

		if b.Current() != InitialBackoff {
			t.Errorf("Current() = %v after reset, want %v", b.Current(), InitialBackoff)
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
	})

	t.Run("Attempts", func(t *testing.T) {
		b := NewBackoff()

		if b.Attempts() != 0 {
			t.Errorf("Initial Attempts() = %d, want 0", b.Attempts())
		}

		for i := 1; i <= 5; i++ {
			b.Next()
			if b.Attempts() != i {
				t.Errorf("After %d calls, Attempts() = %d", i, b.Attempts())
			}
		}
	})

	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        500 * time.Millisecond,
			Multiplier: 2.0,
			Jitter:     0, // No jitter for deterministic test
		})

		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			500 * time.Millisecond, // Max
			500 * time.Millisecond,
		}

		for i, exp := range expected {
			got := b.Next()
			if got != exp {
				t.Errorf("Attempt %d: got %v, want %v", i, got, exp)
			}
		}
	})
}

func testBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    20 * time.Millisecond,
		Max:        100 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     0,
	}
}

func TestManagerReconnectsAfterDrop(t *testing.T) {
	server := testserver.New(t, testserver.Config{})

	m := NewManager(server.URL(), ManagerConfig{
		AutoReconnect: true,
		Backoff:       testBackoffConfig(),
	})

	ready := make(chan *model.Driver, 4)
	m.OnDriverReady(func(d *model.Driver) { ready <- d })

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(ctx) }()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("first session never became ready")
	}
	if m.State() != StateConnected {
		t.Errorf("State() = %v, want StateConnected", m.State())
	}

	server.DropConnection()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("no driver ready after reconnect")
	}
	if m.BackoffAttempts() != 0 {
		t.Errorf("BackoffAttempts() = %d after successful reconnect, want 0", m.BackoffAttempts())
	}

	cancel()
	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if m.State() != StateClosed {
		t.Errorf("State() = %v, want StateClosed", m.State())
	}
}

func TestManagerNoAutoReconnect(t *testing.T) {
	server := testserver.New(t, testserver.Config{})

	m := NewManager(server.URL(), ManagerConfig{
		AutoReconnect: false,
		Backoff:       testBackoffConfig(),
	})

	ready := make(chan *model.Driver, 1)
	m.OnDriverReady(func(d *model.Driver) { ready <- d })

	var disconnectErr error
	disconnected := make(chan struct{})
	m.OnDisconnected(func(err error) {
		disconnectErr = err
		close(disconnected)
	})

	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(context.Background()) }()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("session never became ready")
	}

	server.DropConnection()

	select {
	case err := <-runErr:
		if err == nil {
			t.Error("Run() returned nil after connection loss")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after connection loss")
	}

	select {
	case <-disconnected:
		if disconnectErr == nil {
			t.Error("OnDisconnected called with nil error")
		}
	default:
		t.Error("OnDisconnected was not called")
	}
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want StateDisconnected", m.State())
	}
}

func TestManagerIncompatibleSchemaIsTerminal(t *testing.T) {
	server := testserver.New(t, testserver.Config{
		MinSchemaVersion: 50,
		MaxSchemaVersion: 60,
	})

	m := NewManager(server.URL(), ManagerConfig{
		AutoReconnect: true,
		Backoff:       testBackoffConfig(),
	})

	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(context.Background()) }()

	select {
	case err := <-runErr:
		var incompatible *schema.IncompatibleVersionError
		if !errors.As(err, &incompatible) {
			t.Errorf("Run() error = %v, want IncompatibleVersionError", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run kept retrying an incompatible server")
	}
	if m.State() != StateClosed {
		t.Errorf("State() = %v, want StateClosed", m.State())
	}
}

func TestManagerBacksOffOnRefusedConnection(t *testing.T) {
	m := NewManager("ws://127.0.0.1:1", ManagerConfig{
		AutoReconnect: true,
		Backoff:       testBackoffConfig(),
	})

	attempts := make(chan int, 16)
	m.OnReconnecting(func(attempt int, delay time.Duration) { attempts <- attempt })

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(ctx) }()

	var seen []int
	deadline := time.After(5 * time.Second)
	for len(seen) < 3 {
		select {
		case a := <-attempts:
			seen = append(seen, a)
		case <-deadline:
			t.Fatalf("only %d reconnect attempts observed", len(seen))
		}
	}
	cancel()
	<-runErr

	for i, a := range seen {
		if a != i+1 {
			t.Errorf("attempt %d reported as %d", i+1, a)
		}
	}
}

func TestManagerFailedSessionsDoNotLeakGoroutines(t *testing.T) {
	server := testserver.New(t, testserver.Config{})
	server.HandleError("initialize", "zwave_error")

	m := NewManager(server.URL(), ManagerConfig{
		AutoReconnect: true,
		Backoff:       testBackoffConfig(),
	})

	attempts := make(chan int, 64)
	m.OnReconnecting(func(attempt int, delay time.Duration) { attempts <- attempt })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(ctx) }()

	awaitAttempts := func(n int) {
		deadline := time.After(5 * time.Second)
		for i := 0; i < n; i++ {
			select {
			case <-attempts:
			case <-deadline:
				t.Fatalf("only %d of %d failed sessions observed", i, n)
			}
		}
	}

	awaitAttempts(5)
	before := runtime.NumGoroutine()

	awaitAttempts(10)
	runtime.Gosched()
	after := runtime.NumGoroutine()

	if after > before+3 {
		t.Errorf("goroutines grew from %d to %d across failed sessions", before, after)
	}

	cancel()
	<-runErr
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "DISCONNECTED"},
		{StateConnecting, "CONNECTING"},
		{StateConnected, "CONNECTED"},
		{StateReconnecting, "RECONNECTING"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBackoffSequence(t *testing.T) {
	seq := BackoffSequence()

	if len(seq) != 7 {
		t.Errorf("BackoffSequence() has %d elements, want 7", len(seq))
	}

	if seq[0] != 1*time.Second {
		t.Errorf("First element = %v, want 1s", seq[0])
	}

	if seq[len(seq)-1] != 60*time.Second {
		t.Errorf("Last element = %v, want 60s", seq[len(seq)-1])
	}
}
