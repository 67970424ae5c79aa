package store

import (
	"time"
)

// Status represents the lifecycle of a content request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Valid reports whether the status is a known lifecycle value.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether the status rejects further mutation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanAdvanceTo reports whether the lifecycle permits moving to next. Status
// only advances pending -> in_progress -> completed, or to cancelled from
// any non-terminal state.
func (s Status) CanAdvanceTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusCancelled:
		return true
	case StatusInProgress:
		return s == StatusPending
	case StatusCompleted:
		return s == StatusPending || s == StatusInProgress
	default:
		return false
	}
}

// Candidate source names shared by matching, resolution, and delivery.
const (
	SourceLibrary      = "library"
	SourceContribution = "contribution"
)

// Contribution approval states.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
)

// AuditEntry is one ordered event in a request's audit log.
type AuditEntry struct {
	At      time.Time      `json:"at"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// PendingConfirmation records a non-main candidate awaiting explicit user
// affirmation. It lapses lazily; readers must check CreatedAt against the
// configured TTL before honoring it.
type PendingConfirmation struct {
	Source        string    `json:"source"`
	CandidateID   int64     `json:"candidate_id"`
	ContentType   string    `json:"content_type"`
	ContentSource string    `json:"content_source,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Resolution records the item a completed request resolved to.
type Resolution struct {
	Source      string  `json:"source"`
	CandidateID int64   `json:"candidate_id"`
	Title       string  `json:"title"`
	Score       float64 `json:"score"`
	ContentType string  `json:"content_type"`
}

// Request is a tracked content ask with lifecycle and audit trail.
type Request struct {
	ID            int64
	Title         string
	Descriptor    string
	Priority      string
	Status        Status
	RequesterID   string
	OriginScopeID string
	ProviderID    int64
	Season        *int
	ChapterFrom   *int
	ChapterTo     *int
	IsRange       bool
	Category      string
	Tags          []string
	Voters        []string
	Audit         []AuditEntry
	Pending       *PendingConfirmation
	Resolution    *Resolution
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VoteCount returns the number of distinct voters.
func (r *Request) VoteCount() int {
	return len(r.Voters)
}

// HasVoter reports whether the requester already voted.
func (r *Request) HasVoter(id string) bool {
	for _, voter := range r.Voters {
		if voter == id {
			return true
		}
	}
	return false
}

// LibraryItem is a catalogued, provider-owned asset.
type LibraryItem struct {
	ID         int64
	ProviderID int64
	Title      string
	Season     *int
	Chapter    *int
	ChapterTo  *int
	Category   string
	Tags       []string
	Filename   string
	Location   string
	Size       int64
	CreatedAt  time.Time
}

// Contribution is a user-submitted asset, approval-gated and stored
// independently from library items.
type Contribution struct {
	ID            int64
	SubmitterID   string
	OriginScopeID string
	Title         string
	Body          string
	Kind          string
	Season        *int
	Chapter       *int
	ChapterTo     *int
	Approval      string
	Tags          []string
	Filename      string
	Location      string
	Size          int64
	CreatedAt     time.Time
}

// Provider is a named content source bound to an origin scope.
type Provider struct {
	ID            int64
	Name          string
	OriginScopeID string
	CreatedAt     time.Time
}

// Visibility captures who is asking, for scope and approval filtering.
type Visibility struct {
	RequesterID string
	OriginScope string
	Elevated    bool
	Owner       bool
}

// Global reports whether scope restrictions do not apply to this caller.
func (v Visibility) Global() bool {
	return v.Owner
}
