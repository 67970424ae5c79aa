package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

const userAgent = "OguriCap/0.1.0"

// Event names carried on the envelope.
const (
	EventRequestCreated = "request.created"
	EventRequestUpdated = "request.updated"
)

// Service defines the fire-and-forget notification surface exposed to the
// resolution engine. Failures are the caller's to log; they never fail the
// user-visible operation they accompany.
type Service interface {
	RequestCreated(ctx context.Context, req *store.Request) error
	RequestUpdated(ctx context.Context, req *store.Request) error
}

// NewService builds an event service backed by the configured webhook. When
// no webhook URL is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	endpoint := strings.TrimSpace(cfg.Events.WebhookURL)
	if endpoint == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Events.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &webhookService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// envelope is the JSON document posted to the webhook.
type envelope struct {
	EventID   string    `json:"event_id"`
	Event     string    `json:"event"`
	At        time.Time `json:"at"`
	RequestID int64     `json:"request_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Requester string    `json:"requester"`
	Scope     string    `json:"scope,omitempty"`
	Votes     int       `json:"votes"`
}

type webhookService struct {
	endpoint string
	client   *http.Client
}

func (w *webhookService) RequestCreated(ctx context.Context, req *store.Request) error {
	return w.send(ctx, EventRequestCreated, req)
}

func (w *webhookService) RequestUpdated(ctx context.Context, req *store.Request) error {
	return w.send(ctx, EventRequestUpdated, req)
}

func (w *webhookService) send(ctx context.Context, event string, req *store.Request) error {
	body, err := json.Marshal(envelope{
		EventID:   uuid.NewString(),
		Event:     event,
		At:        time.Now().UTC(),
		RequestID: req.ID,
		Title:     req.Title,
		Status:    string(req.Status),
		Requester: req.RequesterID,
		Scope:     req.OriginScopeID,
		Votes:     req.VoteCount(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build event request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post event: unexpected status %s", resp.Status)
	}
	return nil
}

type noopService struct{}

func (noopService) RequestCreated(context.Context, *store.Request) error { return nil }
func (noopService) RequestUpdated(context.Context, *store.Request) error { return nil }
