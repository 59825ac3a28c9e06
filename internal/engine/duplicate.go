package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
)

// DuplicateConfig holds duplicate-detection settings.
type DuplicateConfig struct {
	Window                  time.Duration
	MaxEntries              int
	OverlapThreshold        float64
	ExactPenalty            float64
	NearPenalty             float64
	CorroborationWindow     time.Duration
	CorroborationMinReports int
	CorroborationBonus      float64
}

type reportRecord struct {
	fingerprint string
	submitterID string
	crisisType  string
	location    string
	message     string
	seenAt      time.Time
}

// DuplicateDetector keeps a bounded, time-pruned in-memory window of
// recent reports keyed by content fingerprint. A Bloom filter fronts
// the exact-match map as a cheap negative test. The window is
// worker-local and only guarantees read-your-writes; duplicate
// suppression is a best-effort heuristic, not a correctness guarantee.
type DuplicateDetector struct {
	mu     sync.Mutex
	config DuplicateConfig
	logger *zap.Logger
	now    func() time.Time

	filter        *bloom.BloomFilter
	recent        []*reportRecord
	byFingerprint map[string][]*reportRecord
}

// NewDuplicateDetector creates an empty detector.
func NewDuplicateDetector(config DuplicateConfig, logger *zap.Logger) *DuplicateDetector {
	return &DuplicateDetector{
		config:        config,
		logger:        logger,
		now:           time.Now,
		filter:        bloom.NewWithEstimates(uint(config.MaxEntries), 0.01),
		byFingerprint: make(map[string][]*reportRecord),
	}
}

// Fingerprint returns the stable content digest over an alert's
// salient fields, used to detect exact repeats.
func Fingerprint(alert *models.Alert) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s",
		alert.CrisisType, alert.Location, alert.Message)))
	return hex.EncodeToString(sum[:])
}

// Check classifies the alert against the recent window. A negative
// penalty marks corroboration (a later trust bonus), not duplication.
func (d *DuplicateDetector) Check(alert *models.Alert) (bool, float64, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.pruneLocked(now)

	fp := Fingerprint(alert)

	// Exact repeat by the same submitter inside the similarity window.
	if d.filter.TestString(fp) {
		for _, rec := range d.byFingerprint[fp] {
			if rec.submitterID == alert.SubmitterID && now.Sub(rec.seenAt) <= d.config.Window {
				return true, d.config.ExactPenalty, "exact duplicate of a recent report by the same submitter"
			}
		}
	}

	// Near-duplicate by the same submitter.
	for i := len(d.recent) - 1; i >= 0; i-- {
		rec := d.recent[i]
		if now.Sub(rec.seenAt) > d.config.Window {
			break
		}
		if rec.submitterID != alert.SubmitterID || rec.fingerprint == fp {
			continue
		}
		if overlap := fieldOverlap(alert, rec); overlap >= d.config.OverlapThreshold {
			return true, d.config.NearPenalty,
				fmt.Sprintf("near-duplicate of a recent report by the same submitter (%.0f%% overlap)", overlap*100)
		}
	}

	// Many independent submitters reporting the same event corroborate
	// it rather than duplicating it.
	others := make(map[string]struct{})
	for i := len(d.recent) - 1; i >= 0; i-- {
		rec := d.recent[i]
		if now.Sub(rec.seenAt) > d.config.CorroborationWindow {
			break
		}
		if rec.submitterID == alert.SubmitterID {
			continue
		}
		if rec.crisisType == alert.CrisisType && rec.location == alert.Location {
			others[rec.submitterID] = struct{}{}
		}
	}
	if len(others) >= d.config.CorroborationMinReports {
		return false, -d.config.CorroborationBonus,
			fmt.Sprintf("corroborated by %d independent submitters", len(others))
	}

	return false, 0, ""
}

// Record adds the alert to the window.
func (d *DuplicateDetector) Record(alert *models.Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pruneLocked(d.now())

	rec := &reportRecord{
		fingerprint: Fingerprint(alert),
		submitterID: alert.SubmitterID,
		crisisType:  alert.CrisisType,
		location:    alert.Location,
		message:     alert.Message,
		seenAt:      alert.CreatedAt,
	}
	if rec.seenAt.IsZero() {
		rec.seenAt = d.now()
	}
	d.recent = append(d.recent, rec)
	d.byFingerprint[rec.fingerprint] = append(d.byFingerprint[rec.fingerprint], rec)
	d.filter.AddString(rec.fingerprint)
}

// Prune drops expired and overflow entries, returning the number
// removed. Also called periodically by the maintenance scheduler.
func (d *DuplicateDetector) Prune() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pruneLocked(d.now())
}

// Size returns the current number of tracked reports.
func (d *DuplicateDetector) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.recent)
}

func (d *DuplicateDetector) pruneLocked(now time.Time) int {
	maxAge := d.config.Window
	if d.config.CorroborationWindow > maxAge {
		maxAge = d.config.CorroborationWindow
	}
	cutoff := now.Add(-maxAge)

	firstKept := 0
	for firstKept < len(d.recent) && d.recent[firstKept].seenAt.Before(cutoff) {
		firstKept++
	}
	if over := len(d.recent) - firstKept - d.config.MaxEntries; over > 0 {
		firstKept += over
	}
	if firstKept == 0 {
		return 0
	}

	d.recent = append([]*reportRecord(nil), d.recent[firstKept:]...)

	// Bloom filters cannot delete, so rebuild the filter and the exact
	// index from the surviving records.
	d.filter.ClearAll()
	d.byFingerprint = make(map[string][]*reportRecord, len(d.recent))
	for _, rec := range d.recent {
		d.byFingerprint[rec.fingerprint] = append(d.byFingerprint[rec.fingerprint], rec)
		d.filter.AddString(rec.fingerprint)
	}
	return firstKept
}

// fieldOverlap measures similarity across the three salient fields:
// crisis type and location count as whole matches, the message
// contributes its token overlap.
func fieldOverlap(alert *models.Alert, rec *reportRecord) float64 {
	score := 0.0
	if alert.CrisisType == rec.crisisType {
		score++
	}
	if alert.Location == rec.location {
		score++
	}
	score += tokenOverlap(alert.Message, rec.message)
	return score / 3.0
}

// tokenOverlap is the Jaccard index over lowercased whitespace tokens.
func tokenOverlap(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	shared := 0
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			shared++
		}
	}
	union := len(tokensA) + len(tokensB) - shared
	return float64(shared) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = struct{}{}
	}
	return set
}
