package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/channel"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/events"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/logging"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

// Deliverer transports resolved assets and finalizes their requests.
type Deliverer struct {
	store   *store.Store
	events  events.Service
	cfg     *config.Config
	logger  *slog.Logger
	nowFunc func() time.Time
}

// New builds a deliverer.
func New(st *store.Store, ev events.Service, cfg *config.Config, logger *slog.Logger) *Deliverer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Deliverer{
		store:   st,
		events:  ev,
		cfg:     cfg,
		logger:  logger.With(logging.FieldComponent, "delivery"),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// asset is the transportable view of a resolved candidate.
type asset struct {
	Title    string
	Filename string
	Location string
	Size     int64
}

// Deliver resolves the asset behind the resolution record, transports it,
// and finalizes the request: status completed, resolution stored, audit
// appended, update event emitted. Any transport failure leaves the request
// untouched so the flow can be retried.
func (d *Deliverer) Deliver(ctx context.Context, m channel.Messenger, req *store.Request, resolution store.Resolution) (*store.Request, error) {
	resolved, err := d.resolveAsset(ctx, resolution)
	if err != nil {
		return nil, err
	}

	if err := d.checkSize(resolved); err != nil {
		return nil, err
	}

	timeout := time.Duration(d.cfg.Delivery.TimeoutSeconds) * time.Second
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	caption := fmt.Sprintf("Pedido #%d: %s", req.ID, resolution.Title)
	if err := m.SendFile(sendCtx, resolved.Location, resolved.Filename, caption); err != nil {
		return nil, services.Wrap(services.ErrDelivery, "delivery", "send file", resolved.Filename, err)
	}

	// The summary artifact is best-effort: losing it must not revert an
	// otherwise successful resolution.
	if err := d.sendSummary(sendCtx, m, req, resolution, resolved); err != nil {
		d.logger.Warn("summary artifact failed",
			logging.FieldRequestID, req.ID,
			"error", err,
		)
	}

	finalized, err := d.finalize(ctx, req.ID, resolution)
	if err != nil {
		return nil, err
	}
	d.logger.Info("request delivered",
		logging.FieldRequestID, finalized.ID,
		logging.FieldSource, resolution.Source,
		logging.FieldCandidate, resolution.CandidateID,
	)

	if err := d.events.RequestUpdated(ctx, finalized); err != nil {
		d.logger.Warn("request update event failed",
			logging.FieldRequestID, finalized.ID,
			"error", err,
		)
	}
	return finalized, nil
}

func (d *Deliverer) resolveAsset(ctx context.Context, resolution store.Resolution) (asset, error) {
	switch resolution.Source {
	case store.SourceLibrary:
		item, err := d.store.GetLibraryItem(ctx, resolution.CandidateID)
		if err != nil {
			return asset{}, err
		}
		return asset{Title: item.Title, Filename: item.Filename, Location: item.Location, Size: item.Size}, nil
	case store.SourceContribution:
		contrib, err := d.store.GetContribution(ctx, resolution.CandidateID)
		if err != nil {
			return asset{}, err
		}
		return asset{Title: contrib.Title, Filename: contrib.Filename, Location: contrib.Location, Size: contrib.Size}, nil
	default:
		return asset{}, services.Wrap(services.ErrDelivery, "delivery", "resolve asset", fmt.Sprintf("unknown source %q", resolution.Source), nil)
	}
}

func (d *Deliverer) checkSize(resolved asset) error {
	if resolved.Location == "" {
		return services.Wrap(services.ErrDelivery, "delivery", "resolve asset", "no stored location", nil)
	}

	size := resolved.Size
	if !isReferenceLink(resolved.Location) {
		info, err := os.Stat(resolved.Location)
		if err != nil {
			return services.Wrap(services.ErrDelivery, "delivery", "resolve asset", resolved.Location, err)
		}
		size = info.Size()
	}

	if size > d.cfg.Delivery.MaxTransferBytes {
		message := fmt.Sprintf("asset size %d exceeds limit %d", size, d.cfg.Delivery.MaxTransferBytes)
		if isReferenceLink(resolved.Location) {
			message += ": available at " + resolved.Location
		}
		return services.Wrap(services.ErrDelivery, "delivery", "size check", message, nil)
	}
	return nil
}

// summaryDocument is the structured artifact capturing request and resolved
// item metadata. Its byte layout is not a compatibility contract.
type summaryDocument struct {
	ArtifactID string           `json:"artifact_id"`
	Generated  time.Time        `json:"generated"`
	Request    summaryRequest   `json:"request"`
	Resolved   store.Resolution `json:"resolved"`
	Filename   string           `json:"filename"`
	Size       int64            `json:"size"`
}

type summaryRequest struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Requester string `json:"requester"`
	Scope     string `json:"scope,omitempty"`
	Priority  string `json:"priority"`
}

func (d *Deliverer) sendSummary(ctx context.Context, m channel.Messenger, req *store.Request, resolution store.Resolution, resolved asset) error {
	doc := summaryDocument{
		ArtifactID: uuid.NewString(),
		Generated:  d.nowFunc(),
		Request: summaryRequest{
			ID:        req.ID,
			Title:     req.Title,
			Requester: req.RequesterID,
			Scope:     req.OriginScopeID,
			Priority:  req.Priority,
		},
		Resolved: resolution,
		Filename: resolved.Filename,
		Size:     resolved.Size,
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	filename := fmt.Sprintf("pedido-%d-%s.json", req.ID, doc.ArtifactID[:8])
	path := filepath.Join(d.cfg.Paths.StagingDir, filename)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if err := m.SendFile(ctx, path, filename, "Resumen del pedido"); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	return nil
}

func (d *Deliverer) finalize(ctx context.Context, id int64, resolution store.Resolution) (*store.Request, error) {
	return d.store.MutateRequest(ctx, id, func(req *store.Request) error {
		if err := store.GuardMutable(req); err != nil {
			return err
		}
		if !req.Status.CanAdvanceTo(store.StatusCompleted) {
			return services.Wrap(services.ErrConflict, "delivery", "finalize", fmt.Sprintf("status %s", req.Status), nil)
		}
		req.Status = store.StatusCompleted
		req.Pending = nil
		req.Resolution = &resolution
		req.Audit = append(req.Audit, store.AuditEntry{
			At:    d.nowFunc(),
			Event: "completed",
			Payload: map[string]any{
				"source":       resolution.Source,
				"candidate_id": resolution.CandidateID,
				"content_type": resolution.ContentType,
			},
		})
		return nil
	})
}

func isReferenceLink(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
