package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
)

const contributionColumns = "id, submitter_id, origin_scope_id, title, body, kind, season, chapter, chapter_to, approval, tags_json, filename, location, size, created_at"

// PutContribution inserts or replaces a user-submitted asset. Ingestion and
// approval happen outside the engine.
func (s *Store) PutContribution(ctx context.Context, contrib *Contribution) (*Contribution, error) {
	if contrib.CreatedAt.IsZero() {
		contrib.CreatedAt = time.Now().UTC()
	}
	if contrib.Approval == "" {
		contrib.Approval = ApprovalPending
	}
	tagsJSON, err := marshalJSON(contrib.Tags)
	if err != nil {
		return nil, err
	}

	if contrib.ID > 0 {
		_, err := s.db.ExecContext(
			ctx,
			`INSERT OR REPLACE INTO contributions (
                id, submitter_id, origin_scope_id, title, body, kind, season,
                chapter, chapter_to, approval, tags_json, filename, location,
                size, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			contrib.ID,
			contrib.SubmitterID,
			nullableString(contrib.OriginScopeID),
			contrib.Title,
			nullableString(contrib.Body),
			nullableString(contrib.Kind),
			nullableInt(contrib.Season),
			nullableInt(contrib.Chapter),
			nullableInt(contrib.ChapterTo),
			contrib.Approval,
			tagsJSON,
			nullableString(contrib.Filename),
			nullableString(contrib.Location),
			contrib.Size,
			formatTime(contrib.CreatedAt),
		)
		if err != nil {
			return nil, fmt.Errorf("put contribution: %w", err)
		}
		return contrib, nil
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO contributions (
            submitter_id, origin_scope_id, title, body, kind, season, chapter,
            chapter_to, approval, tags_json, filename, location, size, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contrib.SubmitterID,
		nullableString(contrib.OriginScopeID),
		contrib.Title,
		nullableString(contrib.Body),
		nullableString(contrib.Kind),
		nullableInt(contrib.Season),
		nullableInt(contrib.Chapter),
		nullableInt(contrib.ChapterTo),
		contrib.Approval,
		tagsJSON,
		nullableString(contrib.Filename),
		nullableString(contrib.Location),
		contrib.Size,
		formatTime(contrib.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert contribution: %w", err)
	}
	contrib.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("contribution id: %w", err)
	}
	return contrib, nil
}

// GetContribution fetches a contribution by id.
func (s *Store) GetContribution(ctx context.Context, id int64) (*Contribution, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+contributionColumns+" FROM contributions WHERE id = ?", id)
	contrib, err := scanContribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get contribution", fmt.Sprintf("id %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get contribution %d: %w", id, err)
	}
	return contrib, nil
}

// ListVisibleContributions returns contributions matchable by the caller:
// approved ones globally, pending ones only for their submitter, an elevated
// moderator scoped to the same origin, or the owner.
func (s *Store) ListVisibleContributions(ctx context.Context, vis Visibility) ([]*Contribution, error) {
	query := "SELECT " + contributionColumns + " FROM contributions WHERE approval = ?"
	args := []any{ApprovalApproved}

	switch {
	case vis.Owner:
		query = "SELECT " + contributionColumns + " FROM contributions"
		args = nil
	case vis.Elevated:
		query += " OR submitter_id = ? OR origin_scope_id IS ?"
		args = append(args, vis.RequesterID, nullableString(vis.OriginScope))
	default:
		query += " OR submitter_id = ?"
		args = append(args, vis.RequesterID)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var out []*Contribution
	for rows.Next() {
		contrib, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		out = append(out, contrib)
	}
	return out, rows.Err()
}

func scanContribution(scanner interface{ Scan(dest ...any) error }) (*Contribution, error) {
	var (
		id          int64
		submitterID string
		originScope sql.NullString
		title       string
		body        sql.NullString
		kind        sql.NullString
		season      sql.NullInt64
		chapter     sql.NullInt64
		chapterTo   sql.NullInt64
		approval    string
		tagsRaw     sql.NullString
		filename    sql.NullString
		location    sql.NullString
		size        sql.NullInt64
		createdRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&submitterID,
		&originScope,
		&title,
		&body,
		&kind,
		&season,
		&chapter,
		&chapterTo,
		&approval,
		&tagsRaw,
		&filename,
		&location,
		&size,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	contrib := &Contribution{
		ID:            id,
		SubmitterID:   submitterID,
		OriginScopeID: originScope.String,
		Title:         title,
		Body:          body.String,
		Kind:          kind.String,
		Season:        intPointer(season),
		Chapter:       intPointer(chapter),
		ChapterTo:     intPointer(chapterTo),
		Approval:      approval,
		Filename:      filename.String,
		Location:      location.String,
		Size:          size.Int64,
	}
	var err error
	if contrib.Tags, err = unmarshalStrings(tagsRaw); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		contrib.CreatedAt = created
	}
	return contrib, nil
}
