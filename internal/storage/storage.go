// SPDX-License-Identifier: MIT

// Package storage provides durable blob storage behind a single put
// primitive: write bytes under a key, get back a stable public locator.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ObjectStore is the durable content storage boundary. Put must be
// all-or-nothing from the caller's perspective: either the object is
// retrievable at the returned URL afterwards, or the call fails.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

var errBadKey = errors.New("invalid object key")

// validateKey rejects keys that could escape the store namespace. Keys use
// forward slashes regardless of platform.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, `\`) {
		return errBadKey
	}
	return nil
}

// joinURL appends key to base with exactly one separating slash.
func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}
