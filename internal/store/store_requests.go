package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
)

const requestColumns = "id, title, descriptor, priority, status, requester_id, origin_scope_id, provider_id, season, chapter_from, chapter_to, is_range, category, tags_json, voters_json, audit_json, pending_json, resolution_json, created_at, updated_at"

// CreateRequest inserts a new pending request and returns it with its id and
// an initial audit entry.
func (s *Store) CreateRequest(ctx context.Context, req *Request) (*Request, error) {
	now := time.Now().UTC()
	if req.Priority == "" {
		req.Priority = "medium"
	}
	req.Status = StatusPending
	req.CreatedAt = now
	req.UpdatedAt = now
	req.Audit = append(req.Audit, AuditEntry{
		At:    now,
		Event: "created",
		Payload: map[string]any{
			"title":     req.Title,
			"requester": req.RequesterID,
		},
	})

	tagsJSON, err := marshalJSON(req.Tags)
	if err != nil {
		return nil, err
	}
	votersJSON, err := marshalJSON(req.Voters)
	if err != nil {
		return nil, err
	}
	auditJSON, err := marshalJSON(req.Audit)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO requests (
            title, descriptor, priority, status, requester_id, origin_scope_id,
            provider_id, season, chapter_from, chapter_to, is_range, category,
            tags_json, voters_json, audit_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.Title,
		nullableString(req.Descriptor),
		req.Priority,
		req.Status,
		req.RequesterID,
		nullableString(req.OriginScopeID),
		nullableID(req.ProviderID),
		nullableInt(req.Season),
		nullableInt(req.ChapterFrom),
		nullableInt(req.ChapterTo),
		boolToInt(req.IsRange),
		nullableString(req.Category),
		tagsJSON,
		votersJSON,
		auditJSON,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("request id: %w", err)
	}
	req.ID = id
	return req, nil
}

// GetRequest fetches a request by id.
func (s *Store) GetRequest(ctx context.Context, id int64) (*Request, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM requests WHERE id = ?", id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get request", fmt.Sprintf("id %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}
	return req, nil
}

// ListRequests returns requests filtered by status; no filter returns all,
// ordered by id for determinism.
func (s *Store) ListRequests(ctx context.Context, statuses ...Status) ([]*Request, error) {
	query := "SELECT " + requestColumns + " FROM requests"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (?" + repeatPlaceholder(len(statuses)-1) + ")"
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ListScopeRequests returns non-terminal requests for an origin scope.
func (s *Store) ListScopeRequests(ctx context.Context, scope string) ([]*Request, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT "+requestColumns+" FROM requests WHERE origin_scope_id IS ? AND status IN (?, ?) ORDER BY id ASC",
		nullableString(scope),
		StatusPending,
		StatusInProgress,
	)
	if err != nil {
		return nil, fmt.Errorf("list scope requests: %w", err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// MutateRequest applies fn to the stored request under an optimistic
// status re-check: the row is re-read, fn validates and mutates it, and the
// update only lands while the status still matches what fn saw. A row
// changed underneath reports ErrConflict.
func (s *Store) MutateRequest(ctx context.Context, id int64, fn func(*Request) error) (*Request, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin request tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM requests WHERE id = ?", id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "mutate request", fmt.Sprintf("id %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read request %d: %w", id, err)
	}

	observedStatus := req.Status
	if err := fn(req); err != nil {
		return nil, err
	}
	req.UpdatedAt = time.Now().UTC()

	tagsJSON, err := marshalJSON(req.Tags)
	if err != nil {
		return nil, err
	}
	votersJSON, err := marshalJSON(req.Voters)
	if err != nil {
		return nil, err
	}
	auditJSON, err := marshalJSON(req.Audit)
	if err != nil {
		return nil, err
	}
	pendingJSON, err := marshalJSON(req.Pending)
	if err != nil {
		return nil, err
	}
	resolutionJSON, err := marshalJSON(req.Resolution)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(
		ctx,
		`UPDATE requests SET
            title = ?, descriptor = ?, priority = ?, status = ?,
            provider_id = ?, season = ?, chapter_from = ?, chapter_to = ?,
            is_range = ?, category = ?, tags_json = ?, voters_json = ?,
            audit_json = ?, pending_json = ?, resolution_json = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		req.Title,
		nullableString(req.Descriptor),
		req.Priority,
		req.Status,
		nullableID(req.ProviderID),
		nullableInt(req.Season),
		nullableInt(req.ChapterFrom),
		nullableInt(req.ChapterTo),
		boolToInt(req.IsRange),
		nullableString(req.Category),
		tagsJSON,
		votersJSON,
		auditJSON,
		pendingJSON,
		resolutionJSON,
		formatTime(req.UpdatedAt),
		id,
		observedStatus,
	)
	if err != nil {
		return nil, fmt.Errorf("update request %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update request %d: %w", id, err)
	}
	if affected == 0 {
		return nil, services.Wrap(services.ErrConflict, "store", "mutate request", fmt.Sprintf("id %d", id), nil)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit request %d: %w", id, err)
	}
	return req, nil
}

// GuardMutable reports the idempotent terminal error when the request no
// longer accepts mutation.
func GuardMutable(req *Request) error {
	switch req.Status {
	case StatusCompleted:
		return services.Wrap(services.ErrAlreadyCompleted, "store", "mutate request", fmt.Sprintf("id %d", req.ID), nil)
	case StatusCancelled:
		return services.Wrap(services.ErrAlreadyCancelled, "store", "mutate request", fmt.Sprintf("id %d", req.ID), nil)
	default:
		return nil
	}
}

func scanRequest(scanner interface{ Scan(dest ...any) error }) (*Request, error) {
	var (
		id          int64
		title       string
		descriptor  sql.NullString
		priority    string
		statusStr   string
		requesterID string
		originScope sql.NullString
		providerID  sql.NullInt64
		season      sql.NullInt64
		chapterFrom sql.NullInt64
		chapterTo   sql.NullInt64
		isRange     sql.NullInt64
		category    sql.NullString
		tagsRaw     sql.NullString
		votersRaw   sql.NullString
		auditRaw    sql.NullString
		pendingRaw  sql.NullString
		resolution  sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&descriptor,
		&priority,
		&statusStr,
		&requesterID,
		&originScope,
		&providerID,
		&season,
		&chapterFrom,
		&chapterTo,
		&isRange,
		&category,
		&tagsRaw,
		&votersRaw,
		&auditRaw,
		&pendingRaw,
		&resolution,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	req := &Request{
		ID:            id,
		Title:         title,
		Descriptor:    descriptor.String,
		Priority:      priority,
		Status:        Status(statusStr),
		RequesterID:   requesterID,
		OriginScopeID: originScope.String,
		ProviderID:    providerID.Int64,
		Season:        intPointer(season),
		ChapterFrom:   intPointer(chapterFrom),
		ChapterTo:     intPointer(chapterTo),
		IsRange:       isRange.Int64 != 0,
		Category:      category.String,
	}

	var err error
	if req.Tags, err = unmarshalStrings(tagsRaw); err != nil {
		return nil, err
	}
	if req.Voters, err = unmarshalStrings(votersRaw); err != nil {
		return nil, err
	}
	if auditRaw.Valid && auditRaw.String != "" {
		if err := json.Unmarshal([]byte(auditRaw.String), &req.Audit); err != nil {
			return nil, fmt.Errorf("unmarshal audit log: %w", err)
		}
	}
	if pendingRaw.Valid && pendingRaw.String != "" {
		req.Pending = &PendingConfirmation{}
		if err := json.Unmarshal([]byte(pendingRaw.String), req.Pending); err != nil {
			return nil, fmt.Errorf("unmarshal pending confirmation: %w", err)
		}
	}
	if resolution.Valid && resolution.String != "" {
		req.Resolution = &Resolution{}
		if err := json.Unmarshal([]byte(resolution.String), req.Resolution); err != nil {
			return nil, fmt.Errorf("unmarshal resolution: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		req.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		req.UpdatedAt = updated
	}
	return req, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
