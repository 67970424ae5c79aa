package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
)

const providerColumns = "id, name, origin_scope_id, created_at"

// PutProvider inserts a named content source bound to an origin scope.
func (s *Store) PutProvider(ctx context.Context, provider *Provider) (*Provider, error) {
	if provider.CreatedAt.IsZero() {
		provider.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(
		ctx,
		"INSERT INTO providers (name, origin_scope_id, created_at) VALUES (?, ?, ?)",
		provider.Name,
		nullableString(provider.OriginScopeID),
		formatTime(provider.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert provider: %w", err)
	}
	provider.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("provider id: %w", err)
	}
	return provider, nil
}

// GetProvider fetches a provider by id.
func (s *Store) GetProvider(ctx context.Context, id int64) (*Provider, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+providerColumns+" FROM providers WHERE id = ?", id)
	provider, err := scanProvider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get provider", fmt.Sprintf("id %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get provider %d: %w", id, err)
	}
	return provider, nil
}

// ListScopeProviders returns providers bound to the given origin scope.
func (s *Store) ListScopeProviders(ctx context.Context, scope string) ([]*Provider, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT "+providerColumns+" FROM providers WHERE origin_scope_id IS ? ORDER BY id ASC",
		nullableString(scope),
	)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var out []*Provider
	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, provider)
	}
	return out, rows.Err()
}

func scanProvider(scanner interface{ Scan(dest ...any) error }) (*Provider, error) {
	var (
		id          int64
		name        string
		originScope sql.NullString
		createdRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &name, &originScope, &createdRaw); err != nil {
		return nil, err
	}
	provider := &Provider{
		ID:            id,
		Name:          name,
		OriginScopeID: originScope.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		provider.CreatedAt = created
	}
	return provider, nil
}
