package inmem

import (
	"context"

	"github.com/hashicorp/go-memdb"
	"github.com/skybi/gatekeeper/internal/audit"
	"github.com/skybi/gatekeeper/internal/storage"
)

const tableEntries = "entries"

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableEntries: {
			Name: tableEntries,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "ID"},
				},
				"outcome": {
					Name:         "outcome",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "Outcome"},
				},
				"userID": {
					Name:         "userID",
					Unique:       false,
					AllowMissing: true,
					Indexer:      &memdb.StringFieldIndex{Field: "UserID"},
				},
			},
		},
	},
}

// Driver represents the in-memory storage driver built using hashicorp/go-memdb
type Driver struct {
	db    *memdb.MemDB
	audit *AuditRepository
}

var _ storage.Driver = (*Driver)(nil)

// New creates a new empty in-memory storage driver.
// Use Initialize to create the database and initialize the repository implementations.
func New() *Driver {
	return &Driver{}
}

// Initialize creates the in-memory database and initializes the repository implementations
func (driver *Driver) Initialize(_ context.Context) error {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return err
	}
	driver.db = db
	driver.audit = &AuditRepository{db: db}
	return nil
}

// Audit provides the in-memory audit repository implementation
func (driver *Driver) Audit() audit.Repository {
	return driver.audit
}

// Close discards the database and its repository implementations
func (driver *Driver) Close() {
	driver.audit = nil
	driver.db = nil
}
