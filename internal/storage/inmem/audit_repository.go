package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/skybi/gatekeeper/internal/audit"
)

// record is the indexed representation of an audit entry
type record struct {
	ID      string
	Outcome string
	UserID  string
	entry   audit.Entry
}

func newRecord(entry *audit.Entry) *record {
	rec := &record{
		ID:      entry.ID.String(),
		Outcome: string(entry.Outcome),
		entry:   *entry,
	}
	if entry.UserID != nil {
		userID := *entry.UserID
		rec.UserID = userID
		rec.entry.UserID = &userID
	}
	rec.entry.RequiredScopes = append([]string{}, entry.RequiredScopes...)
	return rec
}

func (rec *record) toEntry() *audit.Entry {
	entry := rec.entry
	if rec.entry.UserID != nil {
		userID := *rec.entry.UserID
		entry.UserID = &userID
	}
	entry.RequiredScopes = append([]string{}, rec.entry.RequiredScopes...)
	return &entry
}

// AuditRepository implements the audit.Repository interface using hashicorp/go-memdb
type AuditRepository struct {
	db *memdb.MemDB
}

var _ audit.Repository = (*AuditRepository)(nil)

// Get retrieves multiple entries following a filter, ordered by their timestamp (descending).
// If limit <= 0, a default limit value of 10 is used.
func (repo *AuditRepository) Get(_ context.Context, filter *audit.Filter, offset, limit uint64) ([]*audit.Entry, uint64, error) {
	txn := repo.db.Txn(false)

	// Use the most selective index the filter allows
	var (
		it  memdb.ResultIterator
		err error
	)
	switch {
	case filter != nil && filter.UserID != nil:
		it, err = txn.Get(tableEntries, "userID", *filter.UserID)
	case filter != nil && filter.Outcome != nil:
		it, err = txn.Get(tableEntries, "outcome", string(*filter.Outcome))
	default:
		it, err = txn.Get(tableEntries, "id_prefix", "")
	}
	if err != nil {
		return nil, 0, err
	}

	matches := []*record{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rec := obj.(*record)
		if filter.Matches(&rec.entry) {
			matches = append(matches, rec)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].entry.Timestamp != matches[j].entry.Timestamp {
			return matches[i].entry.Timestamp > matches[j].entry.Timestamp
		}
		return matches[i].ID < matches[j].ID
	})

	n := uint64(len(matches))
	if limit <= 0 {
		limit = 10
	}
	if offset >= n {
		return []*audit.Entry{}, n, nil
	}
	end := offset + limit
	if end > n {
		end = n
	}

	entries := make([]*audit.Entry, 0, end-offset)
	for _, rec := range matches[offset:end] {
		entries = append(entries, rec.toEntry())
	}
	return entries, n, nil
}

// Create stores a new entry
func (repo *AuditRepository) Create(_ context.Context, entry *audit.Entry) error {
	txn := repo.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableEntries, newRecord(entry)); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// DeleteBefore deletes all entries recorded before the given time
func (repo *AuditRepository) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	txn := repo.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(tableEntries, "id_prefix", "")
	if err != nil {
		return 0, err
	}

	cutoff := before.UnixMilli()
	expired := []*record{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rec := obj.(*record)
		if rec.entry.Timestamp < cutoff {
			expired = append(expired, rec)
		}
	}
	for _, rec := range expired {
		if err := txn.Delete(tableEntries, rec); err != nil {
			return 0, err
		}
	}

	txn.Commit()
	return int64(len(expired)), nil
}
