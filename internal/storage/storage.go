// Package storage contains the optional S3-compatible object storage connector.
// The bootstrap only connects and probes it; object operations belong to the application.
package storage

import "context"

// Storage is a connected object store.
type Storage interface {
	// Bucket returns the bucket the client was bound to.
	Bucket() string
	// Ping verifies the bucket is still reachable.
	Ping(ctx context.Context) error
}
