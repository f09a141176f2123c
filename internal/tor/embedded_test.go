package tor

import (
	"errors"
	"testing"
	"time"
)

func TestNewEmbeddedTor(t *testing.T) {
	t.Parallel()

	t.Run("creates with default timeout", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor()
		if embedded.startupTimeout != DefaultStartupTimeout {
			t.Errorf("expected default timeout %v, got %v", DefaultStartupTimeout, embedded.startupTimeout)
		}
	})

	t.Run("applies WithStartupTimeout", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor(WithStartupTimeout(5 * time.Minute))
		if embedded.startupTimeout != 5*time.Minute {
			t.Errorf("expected timeout 5m, got %v", embedded.startupTimeout)
		}
	})

	t.Run("ignores non-positive timeout", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor(WithStartupTimeout(0))
		if embedded.startupTimeout != DefaultStartupTimeout {
			t.Errorf("expected default timeout, got %v", embedded.startupTimeout)
		}
	})
}

func TestEmbeddedTorBeforeStart(t *testing.T) {
	t.Parallel()

	t.Run("IsRunning returns false", func(t *testing.T) {
		t.Parallel()

		if NewEmbeddedTor().IsRunning() {
			t.Error("expected IsRunning to be false before start")
		}
	})

	t.Run("ProxyAddr fails", func(t *testing.T) {
		t.Parallel()

		addr, err := NewEmbeddedTor().ProxyAddr()
		if !errors.Is(err, ErrNotRunning) {
			t.Errorf("expected ErrNotRunning, got %v", err)
		}
		if addr != "" {
			t.Errorf("expected empty address, got %q", addr)
		}
	})

	t.Run("Stop is safe to call twice", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor()
		if err := embedded.Stop(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if err := embedded.Stop(); err != nil {
			t.Errorf("expected no error on second stop, got %v", err)
		}
	})
}
