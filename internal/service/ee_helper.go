package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/jjenkins/wcivf/internal/store"
	"github.com/jjenkins/wcivf/internal/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	eePageSize = 200

	// deletedElectionsWindow is how far back the deleted-elections listing looks
	deletedElectionsWindow = 50 * 24 * time.Hour
)

// MetadataSource supplies election and ballot metadata by id.
// A nil result with a nil error means the source has nothing for that id.
type MetadataSource interface {
	GetData(ctx context.Context, id string) (*model.ElectionMetadata, error)
}

// EEHelper reads election metadata from the boundary service and caches every answer for its lifetime
type EEHelper struct {
	client  *Client
	baseURL string
	cache   map[string]*model.ElectionMetadata
	log     logrus.FieldLogger
	tracer  trace.Tracer
	now     func() time.Time
}

var _ MetadataSource = (*EEHelper)(nil)

// NewEEHelper creates a new EEHelper for the service at baseURL
func NewEEHelper(client *Client, baseURL string, log logrus.FieldLogger) *EEHelper {
	return &EEHelper{
		client:  client,
		baseURL: baseURL,
		cache:   make(map[string]*model.ElectionMetadata),
		log:     log,
		tracer:  telemetry.Tracer(),
		now:     time.Now,
	}
}

// BaseElectionsURL returns the elections listing endpoint
func (h *EEHelper) BaseElectionsURL() string {
	return h.baseURL + "/api/elections/"
}

// GetData returns the metadata for an election or ballot id, fetching it on first use.
// Non-2xx answers are cached as "no data"; transport errors are returned and not cached.
func (h *EEHelper) GetData(ctx context.Context, id string) (*model.ElectionMetadata, error) {
	if data, ok := h.cache[id]; ok {
		return data, nil
	}

	var data model.ElectionMetadata
	err := h.client.getJSON(ctx, h.BaseElectionsURL()+url.PathEscape(id)+"/", &data)
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		h.log.WithField("id", id).Debugf("no metadata (HTTP %d)", statusErr.StatusCode)
		h.cache[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", id, err)
	}

	h.cache[id] = &data
	return &data, nil
}

// PrewarmCache loads the whole election listing into the cache, optionally only current elections
func (h *EEHelper) PrewarmCache(ctx context.Context, current bool) error {
	ctx, span := h.tracer.Start(ctx, "ee.prewarm", trace.WithAttributes(
		attribute.Bool("ee.current", current),
	))
	defer span.End()

	params := url.Values{}
	params.Set("page_size", strconv.Itoa(eePageSize))
	if current {
		params.Set("current", "1")
	}

	pages := NewPaginator[model.ElectionMetadata](h.client, h.BaseElectionsURL()+"?"+params.Encode(), h.log)
	count := 0
	for page, err := range pages.Pages(ctx) {
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to prewarm metadata cache: %w", err)
		}
		for _, result := range page.Results {
			data := result
			h.cache[data.ElectionID] = &data
			count++
		}
	}

	span.SetAttributes(attribute.Int("ee.cached", count))
	h.log.WithField("cached", count).Info("Prewarmed metadata cache")
	return nil
}

// DeletedElectionsURL returns the listing of ids deleted with a poll date in the recent window
func (h *EEHelper) DeletedElectionsURL() string {
	since := h.now().Add(-deletedElectionsWindow).Format("2006-01-02")
	return h.BaseElectionsURL() + "?deleted=1&poll_open_date__gte=" + since
}

// DeletedElectionIDs returns every election and ballot id the boundary service reports as deleted
func (h *EEHelper) DeletedElectionIDs(ctx context.Context) ([]string, error) {
	var ids []string
	pages := NewPaginator[model.ElectionMetadata](h.client, h.DeletedElectionsURL(), h.log)
	for page, err := range pages.Pages(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to fetch deleted elections: %w", err)
		}
		for _, result := range page.Results {
			ids = append(ids, result.ElectionID)
		}
	}
	return ids, nil
}

// DeleteDeletedElections deletes local elections and ballots whose ids were deleted upstream.
// It returns the number of elections and ballots removed.
func (h *EEHelper) DeleteDeletedElections(ctx context.Context, repo store.Repository) (int64, int64, error) {
	ids, err := h.DeletedElectionIDs(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(ids) == 0 {
		return 0, 0, nil
	}

	var elections, ballots int64
	err = repo.InTx(ctx, func(tx store.Repository) error {
		var err error
		if elections, err = tx.DeleteElectionsBySlug(ctx, ids); err != nil {
			return err
		}
		ballots, err = tx.DeleteBallotsByPaperID(ctx, ids)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete deleted elections: %w", err)
	}

	return elections, ballots, nil
}
