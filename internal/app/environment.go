package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hotelier-app/hotelier/internal/domain"
)

// MustGetEnvAsString returns the variable's value, refusing to start when it
// is missing. Used for configuration that has no sensible default.
func MustGetEnvAsString(ctx context.Context, name string) string {
	s, exists := os.LookupEnv(name)
	if !exists {
		logger := domain.LoggerFromContext(ctx)
		logger.ErrorContext(ctx, "environment variable missing", "variable_name", name)
		panic(fmt.Sprintf("missing environment variable [%s]", name))
	}

	return s
}

func GetEnvAsStringDefault(ctx context.Context, name, fallback string) string {
	s, exists := os.LookupEnv(name)
	if !exists {
		return fallback
	}
	return s
}

func GetEnvAsIntDefault(ctx context.Context, name string, fallback int) int {
	s, exists := os.LookupEnv(name)
	if !exists {
		return fallback
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		logger := domain.LoggerFromContext(ctx)
		logger.ErrorContext(ctx, "unable to parse environment variable as int",
			"variable_name", name,
			"variable_value", s,
		)
		panic(fmt.Sprintf("unable to parse environment variable as int [%s]: %s", name, s))
	}

	return v
}

func GetEnvAsDurationDefault(ctx context.Context, name string, fallback time.Duration) time.Duration {
	s, exists := os.LookupEnv(name)
	if !exists {
		return fallback
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		logger := domain.LoggerFromContext(ctx)
		logger.ErrorContext(ctx, "unable to parse environment variable as duration",
			"variable_name", name,
			"variable_value", s,
		)
		panic(fmt.Sprintf("unable to parse environment variable as duration [%s]: %s", name, s))
	}

	return duration
}
