package session

import (
	"context"
	"errors"
)

// ErrNoActiveSession is returned when the session accessor is used outside a
// context carrying a Controller.
var ErrNoActiveSession = errors.New("session accessor used without an active session")

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Controller) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the Controller stored in ctx.
func FromContext(ctx context.Context) (*Controller, error) {
	s, ok := ctx.Value(ctxKey{}).(*Controller)
	if !ok || s == nil {
		return nil, ErrNoActiveSession
	}
	return s, nil
}

// MustFromContext is like FromContext but panics on misuse.
func MustFromContext(ctx context.Context) *Controller {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
