package mesh

import (
	"testing"
	"time"

	"github.com/robomesh/meshkit/rmw"
)

// Signal handlers are process-global, so the install and trigger paths are
// exercised in one test.
func TestSignalHandlerShutsDownContext(t *testing.T) {
	t.Setenv(rmw.DomainEnvVar, "")

	ctx, err := New(nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer ctx.Close()

	done := make(chan struct{})
	ctx.OnShutdown(func() { close(done) })

	InstallSignalHandler(ctx)
	// A second install with another context must be a no-op.
	other, err := New(nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer other.Close()
	InstallSignalHandler(other)

	TriggerSignal()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the interrupt to shut the context down")
	}

	if ctx.OK() {
		t.Error("expected OK false after the interrupt")
	}
	if other.OK() != true {
		t.Error("expected the second context to be untouched")
	}
}
