package shared

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// SetupSignalHandler returns a context cancelled by SIGINT or SIGTERM.
func SetupSignalHandler() context.Context {
	return SetupSignalHandlerWithLogger(zerolog.Nop())
}

// SetupSignalHandlerWithLogger is SetupSignalHandler plus a log line naming
// the signal that started the shutdown.
func SetupSignalHandlerWithLogger(logger zerolog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	return ctx
}
