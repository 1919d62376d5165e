package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/skybi/gatekeeper/internal/audit"
)

const auditColumns = "entry_id, recorded_at, method, path, outcome, user_id, required_scopes, cause"

// AuditRepository implements the audit.Repository interface using PostgreSQL
type AuditRepository struct {
	db *pgxpool.Pool
}

var _ audit.Repository = (*AuditRepository)(nil)

// filterEntries applies an audit filter to the given query
func filterEntries(query squirrel.SelectBuilder, filter *audit.Filter) squirrel.SelectBuilder {
	if filter == nil {
		return query
	}
	if filter.Outcome != nil {
		query = query.Where(squirrel.Eq{"outcome": string(*filter.Outcome)})
	}
	if filter.UserID != nil {
		query = query.Where(squirrel.Eq{"user_id": *filter.UserID})
	}
	return query
}

// buildGetQueries builds the counting and the paginated selecting query for Get
func buildGetQueries(filter *audit.Filter, offset, limit uint64) (squirrel.SelectBuilder, squirrel.SelectBuilder) {
	count := filterEntries(squirrel.Select("COUNT(*)").From("audit_entries"), filter).
		PlaceholderFormat(squirrel.Dollar)

	query := filterEntries(squirrel.Select(auditColumns).From("audit_entries"), filter).
		OrderBy("recorded_at DESC", "entry_id").
		PlaceholderFormat(squirrel.Dollar)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	} else {
		query = query.Limit(10)
	}
	return count, query
}

// Get retrieves multiple entries following a filter, ordered by their timestamp (descending).
// If limit <= 0, a default limit value of 10 is used.
func (repo *AuditRepository) Get(ctx context.Context, filter *audit.Filter, offset, limit uint64) ([]*audit.Entry, uint64, error) {
	countQuery, query := buildGetQueries(filter, offset, limit)
	countSQL, countVals, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, err
	}
	sql, vals, err := query.ToSql()
	if err != nil {
		return nil, 0, err
	}

	// Fetch the total amount of entries that match the given filter
	var n uint64
	if err := repo.db.QueryRow(ctx, countSQL, countVals...).Scan(&n); err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return []*audit.Entry{}, 0, nil
	}

	rows, err := repo.db.Query(ctx, sql, vals...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []*audit.Entry{}, n, nil
		}
		return nil, 0, err
	}
	defer rows.Close()

	entries := []*audit.Entry{}
	for rows.Next() {
		entry, err := repo.rowToEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return entries, n, nil
}

// Create stores a new entry
func (repo *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	scopes := entry.RequiredScopes
	if scopes == nil {
		scopes = []string{}
	}
	_, err := repo.db.Exec(
		ctx,
		"INSERT INTO audit_entries ("+auditColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		entry.ID,
		entry.Timestamp,
		entry.Method,
		entry.Path,
		string(entry.Outcome),
		entry.UserID,
		scopes,
		entry.Cause,
	)
	return err
}

// DeleteBefore deletes all entries recorded before the given time
func (repo *AuditRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := repo.db.Exec(ctx, "DELETE FROM audit_entries WHERE recorded_at < $1", before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (repo *AuditRepository) rowToEntry(row pgx.Row) (*audit.Entry, error) {
	entry := new(audit.Entry)
	var outcome string
	err := row.Scan(
		&entry.ID,
		&entry.Timestamp,
		&entry.Method,
		&entry.Path,
		&outcome,
		&entry.UserID,
		&entry.RequiredScopes,
		&entry.Cause,
	)
	if err != nil {
		return nil, err
	}
	entry.Outcome = audit.Outcome(outcome)
	return entry, nil
}
