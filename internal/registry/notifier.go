package registry

import (
	"context"
	"errors"

	"go-rail-employee-registry/internal/dto"
)

// Notifier announces committed writes.
type Notifier interface {
	Notify(ctx context.Context, msg dto.ChangeMessage) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg dto.ChangeMessage) error

func (f NotifierFunc) Notify(ctx context.Context, msg dto.ChangeMessage) error {
	return f(ctx, msg)
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg dto.ChangeMessage) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
