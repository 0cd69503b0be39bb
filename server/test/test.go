// Package test contains shared test helpers.
package test

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"testing"
	"time"

	"github.com/mesh-rooms/mesh-rooms/server/logger"
)

func NewLogger() logger.Logger {
	return logger.NewFromEnv("MESHROOMS_LOG")
}

// Timeout panics with a goroutine dump when the test does not call cancel
// within d. Catches deadlocks early instead of waiting for the test binary
// timeout.
func Timeout(t *testing.T, d time.Duration) (cancel func()) {
	ctx, cancel := context.WithTimeout(context.Background(), d)

	go func() {
		<-ctx.Done()

		if ctx.Err() == context.DeadlineExceeded {
			if err := pprof.Lookup("goroutine").WriteTo(os.Stdout, 1); err != nil {
				fmt.Printf("failed to print goroutines: %v\n", err)
			}

			panic("timeout: " + t.Name())
		}
	}()

	return cancel
}

// UnsetEnvPrefix clears all environment variables starting with prefix so
// config tests run isolated from the host environment.
func UnsetEnvPrefix(prefix string) {
	for _, v := range os.Environ() {
		if strings.HasPrefix(v, prefix) {
			os.Unsetenv(strings.Split(v, "=")[0])
		}
	}
}
