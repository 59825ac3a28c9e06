package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
)

// VerifyConfig holds cross-verification settings.
type VerifyConfig struct {
	Window           time.Duration
	RadiusKM         float64
	MinSourcesHigh   int
	MinSourcesMedium int
}

// Cross-verification score shape. The cap keeps the engine from ever
// being fully certain on corroboration alone.
const (
	crossNeutralScore   = 0.5
	crossScoreCap       = 0.95
	diversityWeight     = 0.15
	conflictPenalty     = 0.10
	volumeBonusPerMatch = 0.02
	volumeBonusCap      = 0.10
	volumeBonusMinCount = 5
)

// CrossVerifier measures how well independent reports corroborate an
// alert: source diversity, geographic and temporal spread, and
// conflicting claims.
type CrossVerifier struct {
	store  repository.AlertRepository
	config VerifyConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewCrossVerifier creates a verifier over the given alert store.
func NewCrossVerifier(store repository.AlertRepository, config VerifyConfig, logger *zap.Logger) *CrossVerifier {
	return &CrossVerifier{store: store, config: config, logger: logger, now: time.Now}
}

// Verify computes the verification score for an alert. Store failures
// degrade to the neutral result rather than blocking the pipeline.
func (v *CrossVerifier) Verify(ctx context.Context, alert *models.Alert) *models.VerificationDetails {
	since := v.now().Add(-v.config.Window)

	matches, err := v.store.FindMatching(ctx, alert.CrisisType, since, alert.SubmitterID)
	if err != nil {
		v.logger.Warn("Match query failed, using neutral verification",
			zap.String("alert_id", alert.ID.String()), zap.Error(err))
		return neutralDetails("cross-verification unavailable, neutral score applied")
	}
	if len(matches) == 0 {
		return neutralDetails("no corroborating reports found")
	}

	// Radius filter when the alert carries coordinates. Matches
	// without coordinates stay in: they matched on type and window.
	meanDistance := 0.0
	if alert.HasCoordinates() {
		kept := matches[:0]
		totalDistance := 0.0
		measured := 0
		for _, match := range matches {
			if !match.HasCoordinates() {
				kept = append(kept, match)
				continue
			}
			dist := haversineDistance(*alert.Latitude, *alert.Longitude, *match.Latitude, *match.Longitude)
			if dist <= v.config.RadiusKM {
				kept = append(kept, match)
				totalDistance += dist
				measured++
			}
		}
		matches = kept
		if len(matches) == 0 {
			return neutralDetails("no corroborating reports within radius")
		}
		if measured > 0 {
			meanDistance = totalDistance / float64(measured)
		}
	}

	details := &models.VerificationDetails{
		Sources:        len(matches),
		TotalReports:   len(matches),
		MeanDistanceKM: meanDistance,
	}

	diversity := v.measureDiversity(matches, details)
	conflictTypes := v.detectConflicts(ctx, alert, matches, since, details)

	score := baseFromSourceCount(len(matches), v.config.MinSourcesHigh)
	score += diversity * diversityWeight
	score -= conflictPenalty * float64(conflictTypes)
	if len(matches) > volumeBonusMinCount {
		bonus := volumeBonusPerMatch * float64(len(matches)-volumeBonusMinCount)
		if bonus > volumeBonusCap {
			bonus = volumeBonusCap
		}
		score += bonus
	}
	details.Score = clamp(score, 0, crossScoreCap)

	switch {
	case details.Score >= 0.75 && details.Sources >= v.config.MinSourcesHigh:
		details.Consensus = models.ConsensusHigh
	case details.Score >= 0.55 && details.Sources >= v.config.MinSourcesMedium:
		details.Consensus = models.ConsensusMedium
	default:
		details.Consensus = models.ConsensusLow
	}

	details.Explanation = fmt.Sprintf(
		"%d corroborating reports from %d submitters, diversity %.2f, %d conflict type(s), consensus %s",
		details.Sources, details.UniqueSubmitters, details.Diversity, conflictTypes, details.Consensus)
	return details
}

func neutralDetails(explanation string) *models.VerificationDetails {
	return &models.VerificationDetails{
		Score:       crossNeutralScore,
		Consensus:   models.ConsensusLow,
		Explanation: explanation,
	}
}

// baseFromSourceCount sets the starting score from the number of
// corroborating sources that survived filtering.
func baseFromSourceCount(count, minHigh int) float64 {
	switch {
	case count >= minHigh:
		bonus := 0.05 * float64(count-minHigh)
		if bonus > 0.20 {
			bonus = 0.20
		}
		return 0.70 + bonus
	case count >= 2:
		return 0.50 + 0.15*float64(count-2)
	case count == 1:
		return 0.45
	default:
		return 0.30
	}
}

// measureDiversity blends submitter diversity, temporal spread and
// volume into one [0,1] score and fills the detail fields.
func (v *CrossVerifier) measureDiversity(matches []*models.Alert, details *models.VerificationDetails) float64 {
	unique := make(map[string]struct{}, len(matches))
	sources := make([]string, 0, len(matches))
	var minTime, maxTime time.Time
	for i, match := range matches {
		if _, seen := unique[match.SubmitterID]; !seen {
			unique[match.SubmitterID] = struct{}{}
			sources = append(sources, match.SubmitterID)
		}
		if i == 0 || match.CreatedAt.Before(minTime) {
			minTime = match.CreatedAt
		}
		if i == 0 || match.CreatedAt.After(maxTime) {
			maxTime = match.CreatedAt
		}
	}
	sort.Strings(sources)

	total := len(matches)
	spreadMin := maxTime.Sub(minTime).Minutes()

	userPart := math.Min(0.5, float64(len(unique))/float64(total)*0.5)
	timePart := math.Min(0.3, spreadMin/100*0.3)
	volumePart := math.Min(0.2, float64(total)/10*0.2)
	diversity := userPart + timePart + volumePart

	details.UniqueSubmitters = len(unique)
	details.TemporalSpreadMin = spreadMin
	details.Diversity = diversity
	details.VerifiedSources = sources
	return diversity
}

// detectConflicts flags conflicting claims among nearby and matching
// reports: a differing crisis type at the same location, or a severity
// gap of two or more ordinal levels. Detection only; the engine never
// arbitrates which report is correct. Returns the number of distinct
// conflict types found.
func (v *CrossVerifier) detectConflicts(ctx context.Context, alert *models.Alert, matches []*models.Alert, since time.Time, details *models.VerificationDetails) int {
	conflicting := make(map[string]struct{})

	nearby, err := v.store.FindNearby(ctx, alert.Location, since, alert.SubmitterID)
	if err != nil {
		v.logger.Warn("Nearby query failed, skipping type-conflict detection",
			zap.String("alert_id", alert.ID.String()), zap.Error(err))
	} else {
		for _, other := range nearby {
			if other.CrisisType != alert.CrisisType {
				details.TypeConflicts = appendUnique(details.TypeConflicts, other.SubmitterID)
				conflicting[other.SubmitterID] = struct{}{}
			}
		}
	}

	alertLevel := models.SeverityLevel(alert.Severity)
	for _, match := range matches {
		matchLevel := models.SeverityLevel(match.Severity)
		if alertLevel == 0 || matchLevel == 0 {
			continue
		}
		if abs(alertLevel-matchLevel) >= 2 {
			details.SeverityConflicts = appendUnique(details.SeverityConflicts, match.SubmitterID)
			conflicting[match.SubmitterID] = struct{}{}
		}
	}

	for id := range conflicting {
		details.ConflictingSources = append(details.ConflictingSources, id)
	}
	sort.Strings(details.ConflictingSources)

	conflictTypes := 0
	if len(details.TypeConflicts) > 0 {
		conflictTypes++
	}
	if len(details.SeverityConflicts) > 0 {
		conflictTypes++
	}
	return conflictTypes
}

// haversineDistance calculates the great-circle distance between two
// points on Earth in kilometers.
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
