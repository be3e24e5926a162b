package shared

import (
	"context"
	"errors"
	"fmt"
)

// Provider is one named source in a ProviderChain
type Provider[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

// ProviderChain tries its providers in order and returns the first result.
// It moves on to the next provider only when the current one fails with a
// connectivity error; any other error stops the chain.
type ProviderChain[T any] struct {
	providers []Provider[T]
}

// NewProviderChain creates a chain; earlier providers take precedence
func NewProviderChain[T any](providers ...Provider[T]) *ProviderChain[T] {
	return &ProviderChain[T]{providers: providers}
}

// Fetch returns the value, the name of the provider that produced it and an error
func (c *ProviderChain[T]) Fetch(ctx context.Context) (T, string, error) {
	var zero T
	if len(c.providers) == 0 {
		return zero, "", ErrInvalidState.WithMessage("provider chain is empty")
	}

	var errs []error
	for _, p := range c.providers {
		v, err := p.Fetch(ctx)
		if err == nil {
			return v, p.Name, nil
		}
		if !IsConnectivityError(err) {
			return zero, p.Name, fmt.Errorf("%s: %w", p.Name, err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}
	return zero, "", errors.Join(errs...)
}
