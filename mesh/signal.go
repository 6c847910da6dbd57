package mesh

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Signal handler state. One handler per process lifetime.
var (
	signalOnce sync.Once
	signalChan = make(chan os.Signal, 1)
)

// InstallSignalHandler registers a process-wide interrupt handler that
// shuts down ctx when SIGINT or SIGTERM arrives. The handler holds its own
// reference to the context, so the context stays alive until the handler
// has run (or the process exits).
//
// Installation is idempotent: signal handlers are process-global, so a
// second call with any context is a no-op. Shutdown irregularities in
// the signal path are logged, never propagated; signal delivery has no
// channel for returning errors.
func InstallSignalHandler(ctx *Context) {
	signalOnce.Do(func() {
		signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

		held := ctx.Retain()
		log := ctx.Logger().WithComponent("signal")

		go func() {
			sig := <-signalChan
			signal.Stop(signalChan)
			log.Info("interrupt received", map[string]interface{}{
				"signal": sig.String(),
			})
			if !held.Shutdown() {
				log.Warn("context already shut down")
			}
			held.Close()
		}()
	})
}

// TriggerSignal injects an interrupt as if one had been delivered by the
// OS. It is dropped when a previous trigger is still pending. Useful for
// tests and controlled teardown.
func TriggerSignal() {
	select {
	case signalChan <- syscall.SIGINT:
	default:
	}
}
