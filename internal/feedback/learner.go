// Package feedback turns user corrections into per-user classification
// adjustments: confidence dampening, outright overrides and keyword-gap
// candidates for the catalog.
package feedback

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ltmtri/vnspend/internal/common"
	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/monitor"
	"github.com/ltmtri/vnspend/internal/normalize"
	"github.com/ltmtri/vnspend/internal/service"
)

// Learning thresholds.
const (
	// AdjustmentFactor dampens confidence for categories a user keeps
	// correcting away from.
	AdjustmentFactor   = 0.80
	adjustmentMinCount = 3

	// overrideMinCount is how often the same correction must repeat before
	// the learner overrides the prediction outright.
	overrideMinCount = 5

	// keywordGapMinCount is how often one description must be corrected to
	// the same category before its tokens become keyword candidates.
	keywordGapMinCount = 3

	patternStripes = 16
)

// Function words that carry no category signal.
var stopWords = map[string]struct{}{
	"va": {}, "la": {}, "cua": {}, "cho": {}, "o": {}, "tai": {},
	"den": {}, "tu": {}, "ngay": {}, "tien": {}, "thanh": {}, "toan": {},
	"chuyen": {}, "khoan": {}, "mua": {}, "tra": {},
}

// statsKey identifies one recurring correction across all users.
type statsKey struct {
	description string
	predicted   string
	corrected   string
}

// CorrectionStats counts how often one exact correction has recurred.
type CorrectionStats struct {
	Description string
	Predicted   string
	Corrected   string
	Count       int
}

// stripe holds the patterns of the users hashed to it. Striping keeps
// concurrent corrections from different users off a single lock.
type stripe struct {
	patterns map[string]map[string]*model.UserPattern
	mu       sync.Mutex
}

// Learner accumulates corrections in memory and optionally persists them.
// All methods are safe for concurrent use.
type Learner struct {
	normalizer *normalize.Normalizer
	store      service.Storage
	recorder   *monitor.Recorder
	logger     *slog.Logger
	stats      map[statsKey]*CorrectionStats
	stripes    [patternStripes]stripe
	statsMu    sync.Mutex
}

// NewLearner creates a Learner. store and recorder may be nil for an
// in-memory-only learner.
func NewLearner(normalizer *normalize.Normalizer, store service.Storage, recorder *monitor.Recorder, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Learner{
		normalizer: normalizer,
		store:      store,
		recorder:   recorder,
		logger:     logger,
		stats:      make(map[statsKey]*CorrectionStats),
	}
	for i := range l.stripes {
		l.stripes[i].patterns = make(map[string]map[string]*model.UserPattern)
	}
	return l
}

// RecordCorrection ingests one user decision. A confirmation (predicted ==
// corrected) only feeds the accuracy counters; a real correction also updates
// the user's patterns and the global recurrence stats.
func (l *Learner) RecordCorrection(ctx context.Context, event model.CorrectionEvent) error {
	if event.UserID == "" || event.Predicted == "" || event.Corrected == "" {
		return fmt.Errorf("correction is missing user or category: %w", common.ErrInvalidInput)
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if l.store != nil {
		if err := l.store.SaveCorrection(ctx, &event); err != nil {
			return fmt.Errorf("failed to persist correction: %w", err)
		}
	}
	if l.recorder != nil {
		l.recorder.RecordFeedback(event.Predicted == event.Corrected)
	}

	l.apply(event)

	l.logger.Debug("correction recorded",
		"user", event.UserID,
		"predicted", event.Predicted,
		"corrected", event.Corrected)

	return nil
}

// apply updates the in-memory state only. Used by both live recording and
// replay from storage.
func (l *Learner) apply(event model.CorrectionEvent) {
	if event.Predicted == event.Corrected {
		return
	}

	s := l.stripeFor(event.UserID)
	s.mu.Lock()
	byFrom, ok := s.patterns[event.UserID]
	if !ok {
		byFrom = make(map[string]*model.UserPattern)
		s.patterns[event.UserID] = byFrom
	}
	existing, ok := byFrom[event.Predicted]
	if ok && existing.ToID == event.Corrected {
		existing.Count++
		existing.LastSeenAt = event.CreatedAt
	} else {
		// A correction toward a different target resets the pattern; only
		// one destination per source category is tracked.
		byFrom[event.Predicted] = &model.UserPattern{
			UserID:     event.UserID,
			FromID:     event.Predicted,
			ToID:       event.Corrected,
			Count:      1,
			LastSeenAt: event.CreatedAt,
		}
	}
	s.mu.Unlock()

	key := statsKey{
		description: l.normalizer.Normalize(event.Description),
		predicted:   event.Predicted,
		corrected:   event.Corrected,
	}
	l.statsMu.Lock()
	stat, ok := l.stats[key]
	if !ok {
		stat = &CorrectionStats{
			Description: key.description,
			Predicted:   key.predicted,
			Corrected:   key.corrected,
		}
		l.stats[key] = stat
	}
	stat.Count++
	l.statsMu.Unlock()
}

// ConfidenceAdjustment returns the multiplier to apply to a prediction of
// categoryID for this user. 1.0 means no adjustment.
func (l *Learner) ConfidenceAdjustment(userID, categoryID string) float64 {
	s := l.stripeFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.patterns[userID][categoryID]; ok && p.Count >= adjustmentMinCount {
		return AdjustmentFactor
	}
	return 1.0
}

// SuggestedCategory returns the category this user's history says the
// prediction should be replaced with, if the pattern is strong enough.
func (l *Learner) SuggestedCategory(userID, categoryID string) (string, bool) {
	s := l.stripeFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.patterns[userID][categoryID]; ok && p.Count >= overrideMinCount {
		return p.ToID, true
	}
	return "", false
}

// Patterns returns a snapshot of one user's learned patterns, strongest first.
func (l *Learner) Patterns(userID string) []model.UserPattern {
	s := l.stripeFor(userID)
	s.mu.Lock()
	out := make([]model.UserPattern, 0, len(s.patterns[userID]))
	for _, p := range s.patterns[userID] {
		out = append(out, *p)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].FromID < out[j].FromID
	})
	return out
}

// KeywordCandidates mines the recurring corrections toward categoryID for
// tokens the catalog is missing. Stop words are dropped; the result is sorted
// for stable output.
func (l *Learner) KeywordCandidates(categoryID string) []string {
	l.statsMu.Lock()
	seen := make(map[string]struct{})
	for key, stat := range l.stats {
		if key.corrected != categoryID || stat.Count < keywordGapMinCount {
			continue
		}
		for _, token := range strings.Fields(key.description) {
			if _, stop := stopWords[token]; stop || len(token) < 2 {
				continue
			}
			seen[token] = struct{}{}
		}
	}
	l.statsMu.Unlock()

	out := make([]string, 0, len(seen))
	for token := range seen {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

// Replay rebuilds the in-memory state from persisted corrections. Call on
// startup; replayed events do not touch the accuracy counters again.
func (l *Learner) Replay(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	events, err := l.store.GetCorrections(ctx)
	if err != nil {
		return fmt.Errorf("failed to load corrections: %w", err)
	}

	for _, event := range events {
		l.apply(event)
	}

	l.logger.Info("correction history replayed", "events", len(events))
	return nil
}

func (l *Learner) stripeFor(userID string) *stripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &l.stripes[h.Sum32()%patternStripes]
}
