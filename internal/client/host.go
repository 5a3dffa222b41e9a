package client

import (
	"context"
	"os"
	"strings"

	"diamond_tma/internal/domain"
)

// HostEnvironment supplies the raw init data handed over by the Telegram client.
// The value is untrusted; the server verifies it.
type HostEnvironment interface {
	InitData(ctx context.Context) (string, error)
}

// HostFunc adapts a function to HostEnvironment.
type HostFunc func(ctx context.Context) (string, error)

func (f HostFunc) InitData(ctx context.Context) (string, error) { return f(ctx) }

// StaticHost always returns the same init data.
type StaticHost string

func (h StaticHost) InitData(_ context.Context) (string, error) {
	if strings.TrimSpace(string(h)) == "" {
		return "", domain.ErrEnvironmentUnavailable
	}
	return string(h), nil
}

// EnvHost reads init data from an environment variable on every call.
type EnvHost struct {
	Key string
}

func (h EnvHost) InitData(ctx context.Context) (string, error) {
	return StaticHost(os.Getenv(h.Key)).InitData(ctx)
}
