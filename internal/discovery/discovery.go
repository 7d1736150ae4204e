// Package discovery mines the miscellaneous bucket for recurring themes and
// turns them into category suggestions awaiting a human decision.
package discovery

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ltmtri/vnspend/internal/common"
	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/normalize"
	"github.com/ltmtri/vnspend/internal/service"
)

// nameSimilarityCeiling suppresses suggestions whose name is nearly a
// category that already exists.
const nameSimilarityCeiling = 0.80

// observeStripes fixes the number of locks serializing Observe per user.
const observeStripes = 16

// Discoverer watches fallback-classified transactions and maintains pending
// suggestions in storage.
type Discoverer struct {
	normalizer *normalize.Normalizer
	store      service.Storage
	logger     *slog.Logger
	heuristics []Heuristic
	catalog    []model.Category
	stripes    [observeStripes]sync.Mutex
}

// NewDiscoverer creates a Discoverer over the given heuristics. Pass nil
// heuristics to use the defaults. catalog holds the built-in categories the
// store does not know about; suggestions too similar to any of them (or to a
// store-created category) are suppressed.
func NewDiscoverer(normalizer *normalize.Normalizer, store service.Storage, heuristics []Heuristic, catalog []model.Category, logger *slog.Logger) (*Discoverer, error) {
	if store == nil {
		return nil, fmt.Errorf("discovery requires storage: %w", common.ErrMissingConfig)
	}
	if heuristics == nil {
		heuristics = DefaultHeuristics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{
		normalizer: normalizer,
		store:      store,
		heuristics: heuristics,
		catalog:    catalog,
		logger:     logger,
	}, nil
}

// Observe inspects one transaction that landed in the miscellaneous bucket.
// It returns the created or updated pending suggestion, or nil when no theme
// matched or the theme is too close to an existing category.
func (d *Discoverer) Observe(ctx context.Context, userID, description string) (*model.CategorySuggestion, error) {
	normalized := d.normalizer.Normalize(description)
	if normalized == "" {
		return nil, nil
	}

	var hit *Heuristic
	for i := range d.heuristics {
		if d.heuristics[i].Matches(normalized) {
			hit = &d.heuristics[i]
			break
		}
	}
	if hit == nil {
		return nil, nil
	}

	suppressed, err := d.nameTaken(ctx, hit.Name, hit.Type)
	if err != nil {
		return nil, err
	}
	if suppressed {
		d.logger.Debug("suggestion suppressed, category already exists", "name", hit.Name)
		return nil, nil
	}

	// The pending lookup and the save below are a read-modify-write;
	// concurrent observations for the same user must not each create their
	// own copy of the same theme.
	mu := d.stripeFor(userID)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now()

	pending, err := d.store.GetSuggestionsByStatus(ctx, userID, model.SuggestionPending)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending suggestions: %w", err)
	}
	for i := range pending {
		if pending[i].Name != hit.Name {
			continue
		}
		if err := pending[i].AddSample(description, now); err != nil {
			return nil, err
		}
		if err := d.store.SaveSuggestion(ctx, &pending[i]); err != nil {
			return nil, fmt.Errorf("failed to update suggestion: %w", err)
		}
		return &pending[i], nil
	}

	suggestion := &model.CategorySuggestion{
		ID:               uuid.New().String(),
		UserID:           userID,
		Name:             hit.Name,
		Type:             hit.Type,
		Icon:             hit.Icon,
		Color:            hit.Color,
		Confidence:       model.SuggestionBaseConfidence,
		Samples:          []string{description},
		TransactionCount: 1,
		Status:           model.SuggestionPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := d.store.SaveSuggestion(ctx, suggestion); err != nil {
		return nil, fmt.Errorf("failed to save suggestion: %w", err)
	}

	d.logger.Info("new category suggested", "user", userID, "name", hit.Name)
	return suggestion, nil
}

// Approve finalizes a pending suggestion and creates the category it
// proposed.
func (d *Discoverer) Approve(ctx context.Context, id string) (*model.Category, error) {
	suggestion, err := d.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := suggestion.Transition(model.SuggestionApproved, time.Now()); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrSuggestionFinalized, err)
	}
	if err := d.store.SaveSuggestion(ctx, suggestion); err != nil {
		return nil, fmt.Errorf("failed to save suggestion: %w", err)
	}

	category := &model.Category{
		ID:   d.slug(suggestion.Name),
		Name: suggestion.Name,
		Type: suggestion.Type,
		Icon: suggestion.Icon,
	}
	if err := d.store.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	d.logger.Info("suggestion approved", "id", id, "category", category.ID)
	return category, nil
}

// Reject finalizes a pending suggestion without creating anything.
func (d *Discoverer) Reject(ctx context.Context, id, reason string) error {
	suggestion, err := d.store.GetSuggestion(ctx, id)
	if err != nil {
		return err
	}
	if err := suggestion.Transition(model.SuggestionRejected, time.Now()); err != nil {
		return fmt.Errorf("%w: %s", common.ErrSuggestionFinalized, err)
	}
	suggestion.RejectReason = reason

	return d.store.SaveSuggestion(ctx, suggestion)
}

// Merge folds a pending suggestion into an existing category.
func (d *Discoverer) Merge(ctx context.Context, id, intoCategoryID string) error {
	suggestion, err := d.store.GetSuggestion(ctx, id)
	if err != nil {
		return err
	}
	if err := suggestion.Transition(model.SuggestionMerged, time.Now()); err != nil {
		return fmt.Errorf("%w: %s", common.ErrSuggestionFinalized, err)
	}
	suggestion.MergedIntoID = intoCategoryID

	return d.store.SaveSuggestion(ctx, suggestion)
}

// nameTaken reports whether an existing same-type category name is close
// enough to name to make a suggestion redundant. Both the built-in catalog
// and store-created categories count.
func (d *Discoverer) nameTaken(ctx context.Context, name string, catType model.CategoryType) (bool, error) {
	created, err := d.store.GetCategories(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load categories: %w", err)
	}

	candidate := d.normalizer.Normalize(name)
	for _, cat := range append(created, d.catalog...) {
		if cat.Type != catType {
			continue
		}
		if d.normalizer.Similarity(candidate, d.normalizer.Normalize(cat.Name)) >= nameSimilarityCeiling {
			return true, nil
		}
	}
	return false, nil
}

func (d *Discoverer) slug(name string) string {
	return strings.ReplaceAll(d.normalizer.Normalize(name), " ", "_")
}

func (d *Discoverer) stripeFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &d.stripes[h.Sum32()%observeStripes]
}
