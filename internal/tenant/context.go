package tenant

import (
	"context"
	"errors"
)

// Key for tenant ID in context
type contextKey string

const (
	businessIDKey contextKey = "businessID"
	requestIDKey  contextKey = "requestID"
)

// ErrBusinessIDNotFound is returned when no business ID is found in context
var ErrBusinessIDNotFound = errors.New("business ID not found in context")

// WithBusinessID adds a tenant business ID to the context
func WithBusinessID(ctx context.Context, businessID string) context.Context {
	return context.WithValue(ctx, businessIDKey, businessID)
}

// FromContext extracts the tenant business ID from the context
func FromContext(ctx context.Context) (string, error) {
	businessID, ok := ctx.Value(businessIDKey).(string)
	if !ok || businessID == "" {
		return "", ErrBusinessIDNotFound
	}
	return businessID, nil
}

// MustFromContext extracts the tenant business ID from the context or panics
func MustFromContext(ctx context.Context) string {
	businessID, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return businessID
}

// ErrNoRequestIDInContext is returned when no request ID is found in context
var ErrNoRequestIDInContext = errors.New("no request ID found in context")

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FromRequestIDContext extracts the request ID from the context
func FromRequestIDContext(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		return "", ErrNoRequestIDInContext
	}
	return requestID, nil
}
