package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
)

const libraryColumns = "id, provider_id, title, season, chapter, chapter_to, category, tags_json, filename, location, size, created_at"

// PutLibraryItem inserts or replaces a catalogued asset. Ingestion happens
// outside the engine; this surface exists for fixtures and tooling.
func (s *Store) PutLibraryItem(ctx context.Context, item *LibraryItem) (*LibraryItem, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	tagsJSON, err := marshalJSON(item.Tags)
	if err != nil {
		return nil, err
	}

	if item.ID > 0 {
		_, err := s.db.ExecContext(
			ctx,
			`INSERT OR REPLACE INTO library_items (
                id, provider_id, title, season, chapter, chapter_to, category,
                tags_json, filename, location, size, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.ProviderID,
			item.Title,
			nullableInt(item.Season),
			nullableInt(item.Chapter),
			nullableInt(item.ChapterTo),
			nullableString(item.Category),
			tagsJSON,
			nullableString(item.Filename),
			nullableString(item.Location),
			item.Size,
			formatTime(item.CreatedAt),
		)
		if err != nil {
			return nil, fmt.Errorf("put library item: %w", err)
		}
		return item, nil
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO library_items (
            provider_id, title, season, chapter, chapter_to, category,
            tags_json, filename, location, size, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ProviderID,
		item.Title,
		nullableInt(item.Season),
		nullableInt(item.Chapter),
		nullableInt(item.ChapterTo),
		nullableString(item.Category),
		tagsJSON,
		nullableString(item.Filename),
		nullableString(item.Location),
		item.Size,
		formatTime(item.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert library item: %w", err)
	}
	item.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("library item id: %w", err)
	}
	return item, nil
}

// GetLibraryItem fetches a catalogued asset by id.
func (s *Store) GetLibraryItem(ctx context.Context, id int64) (*LibraryItem, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+libraryColumns+" FROM library_items WHERE id = ?", id)
	item, err := scanLibraryItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get library item", fmt.Sprintf("id %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get library item %d: %w", id, err)
	}
	return item, nil
}

// ListLibraryItems returns catalogued assets, optionally restricted to the
// given providers. Ordered by id for deterministic scoring ties.
func (s *Store) ListLibraryItems(ctx context.Context, providerIDs ...int64) ([]*LibraryItem, error) {
	query := "SELECT " + libraryColumns + " FROM library_items"
	args := make([]any, 0, len(providerIDs))
	if len(providerIDs) > 0 {
		query += " WHERE provider_id IN (?" + repeatPlaceholder(len(providerIDs)-1) + ")"
		for _, id := range providerIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list library items: %w", err)
	}
	defer rows.Close()

	var out []*LibraryItem
	for rows.Next() {
		item, err := scanLibraryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan library item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanLibraryItem(scanner interface{ Scan(dest ...any) error }) (*LibraryItem, error) {
	var (
		id         int64
		providerID int64
		title      string
		season     sql.NullInt64
		chapter    sql.NullInt64
		chapterTo  sql.NullInt64
		category   sql.NullString
		tagsRaw    sql.NullString
		filename   sql.NullString
		location   sql.NullString
		size       sql.NullInt64
		createdRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&providerID,
		&title,
		&season,
		&chapter,
		&chapterTo,
		&category,
		&tagsRaw,
		&filename,
		&location,
		&size,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	item := &LibraryItem{
		ID:         id,
		ProviderID: providerID,
		Title:      title,
		Season:     intPointer(season),
		Chapter:    intPointer(chapter),
		ChapterTo:  intPointer(chapterTo),
		Category:   category.String,
		Filename:   filename.String,
		Location:   location.String,
		Size:       size.Int64,
	}
	var err error
	if item.Tags, err = unmarshalStrings(tagsRaw); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	return item, nil
}
