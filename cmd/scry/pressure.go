package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/phrazzld/scry-study/internal/events"
)

// relayMemoryPressure emits a memory-pressure event for every value received
// on signals until ctx is done or signals is closed.
func relayMemoryPressure(ctx context.Context, signals <-chan os.Signal, emitter events.EventEmitter, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			event, err := events.NewEvent(events.TypeMemoryPressure, nil)
			if err != nil {
				logger.Error("failed to build memory pressure event", slog.String("error", err.Error()))
				continue
			}
			logger.Info("memory pressure signal received", slog.String("signal", sig.String()))
			if err := emitter.EmitEvent(ctx, event); err != nil {
				logger.Warn("memory pressure event delivery failed", slog.String("error", err.Error()))
			}
		}
	}
}

// watchMemoryPressure relays the platform's memory-pressure signals to
// emitter in the background. The returned function stops the relay and waits
// for it to exit.
func watchMemoryPressure(emitter events.EventEmitter, logger *slog.Logger) (stop func()) {
	if len(memoryPressureSignals) == 0 {
		return func() {}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, memoryPressureSignals...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		relayMemoryPressure(ctx, signals, emitter, logger)
	}()

	return func() {
		signal.Stop(signals)
		cancel()
		<-done
	}
}
