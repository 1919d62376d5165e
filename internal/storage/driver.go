package storage

import (
	"context"

	"github.com/skybi/gatekeeper/internal/audit"
)

// Driver represents a storage driver
type Driver interface {
	// Initialize initializes the storage driver (i.e. opens a database connection)
	Initialize(ctx context.Context) error

	// Audit provides an audit repository implementation
	Audit() audit.Repository

	// Close closes the storage driver (i.e. closes a database connection)
	Close()
}
