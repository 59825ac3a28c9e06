package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
)

// Stage names the pipeline states an alert passes through.
type Stage string

const (
	StageRateCheck       Stage = "RATE_CHECK"
	StageDuplicateCheck  Stage = "DUPLICATE_CHECK"
	StageReputation      Stage = "REPUTATION_LOOKUP"
	StageCrossVerify     Stage = "CROSS_VERIFY"
	StageSignals         Stage = "ADDITIONAL_SIGNALS"
	StageScore           Stage = "SCORE"
	StagePersistAlert    Stage = "PERSIST_ALERT"
	StageLogActivity     Stage = "LOG_ACTIVITY"
	StageLogVerification Stage = "LOG_VERIFICATION"
	StageLogDecision     Stage = "LOG_DECISION"
	StageAllocation      Stage = "DOWNSTREAM_ALLOCATION"
)

// ErrValidation marks a malformed alert rejected before the pipeline.
var ErrValidation = errors.New("invalid alert")

// Allocator is the downstream resource allocation collaborator,
// invoked only for verified alerts and tolerated to fail.
type Allocator interface {
	Allocate(ctx context.Context, req models.AllocationRequest) error
}

// Required skills dispatched downstream per crisis type.
var crisisSkills = map[string][]string{
	"earthquake":   {"search_rescue", "medical", "structural"},
	"fire":         {"firefighting", "medical"},
	"explosion":    {"search_rescue", "medical", "hazmat"},
	"tsunami":      {"search_rescue", "medical", "evacuation"},
	"flood":        {"evacuation", "medical", "logistics"},
	"landslide":    {"search_rescue", "heavy_equipment"},
	"hurricane":    {"evacuation", "logistics"},
	"medical":      {"medical"},
	"power_outage": {"utilities"},
}

// Engine sequences the detectors over one alert: rate check, duplicate
// check, reputation, cross-verification, scoring, persistence, audit
// and downstream allocation. Per-submitter mutations are serialized
// through keyed locks so concurrent workers never lose updates.
type Engine struct {
	limiter    *RateLimiter
	duplicates *DuplicateDetector
	reputation *ReputationManager
	verifier   *CrossVerifier
	scorer     *TrustScorer

	alerts repository.AlertRepository
	audits repository.AuditRepository

	allocator Allocator
	metrics   *Metrics
	logger    *zap.Logger
	validate  *validator.Validate

	submitterLocks keyedMutex
	storeTimeout   time.Duration
	now            func() time.Time
}

// NewEngine wires the pipeline.
func NewEngine(
	limiter *RateLimiter,
	duplicates *DuplicateDetector,
	reputation *ReputationManager,
	verifier *CrossVerifier,
	scorer *TrustScorer,
	alerts repository.AlertRepository,
	audits repository.AuditRepository,
	allocator Allocator,
	metrics *Metrics,
	storeTimeout time.Duration,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		limiter:      limiter,
		duplicates:   duplicates,
		reputation:   reputation,
		verifier:     verifier,
		scorer:       scorer,
		alerts:       alerts,
		audits:       audits,
		allocator:    allocator,
		metrics:      metrics,
		logger:       logger,
		validate:     validator.New(),
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

// alertValidation mirrors the required-field contract for inbound alerts.
type alertValidation struct {
	SubmitterID string `validate:"required"`
	CrisisType  string `validate:"required"`
	Message     string `validate:"required"`
}

// ValidateAlert rejects malformed alerts before they enter the
// pipeline. Missing fields are never silently defaulted.
func (e *Engine) ValidateAlert(alert *models.Alert) error {
	v := alertValidation{
		SubmitterID: alert.SubmitterID,
		CrisisType:  alert.CrisisType,
		Message:     alert.Message,
	}
	if err := e.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if alert.Location == "" && !alert.HasCoordinates() {
		return fmt.Errorf("%w: location or coordinates required", ErrValidation)
	}
	if (alert.Latitude == nil) != (alert.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be provided together", ErrValidation)
	}
	return nil
}

// ProcessAlert runs one alert to a terminal decision. Only the early
// reject branches short-circuit; failures in persistence, audit
// logging and allocation are recorded without altering the computed
// decision. A scoring failure propagates and is fatal for the alert.
func (e *Engine) ProcessAlert(ctx context.Context, alert *models.Alert) (*models.DecisionRecord, error) {
	start := e.now()

	if err := e.ValidateAlert(alert); err != nil {
		return nil, err
	}
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = start
	}

	unlock := e.submitterLocks.lock(alert.SubmitterID)
	defer unlock()

	// RATE_CHECK
	rctx, cancel := e.stageCtx(ctx)
	allowed, rateMsg := e.limiter.Check(rctx, alert.SubmitterID)
	cancel()
	if !allowed {
		record := e.earlyReject(ctx, alert, models.StatusRateLimited, rateMsg, start)
		return record, nil
	}

	// DUPLICATE_CHECK
	isDup, dupPenalty, dupReason := e.duplicates.Check(alert)
	if isDup && dupPenalty >= e.duplicates.config.ExactPenalty {
		record := e.earlyReject(ctx, alert, models.StatusDuplicate, dupReason, start)
		return record, nil
	}

	// REPUTATION_LOOKUP
	rctx, cancel = e.stageCtx(ctx)
	repScore, err := e.reputation.GetScore(rctx, alert.SubmitterID)
	cancel()
	if err != nil {
		e.logger.Warn("Reputation lookup degraded",
			zap.String("submitter_id", alert.SubmitterID), zap.Error(err))
	}
	contribution := contributionCurve(repScore)

	// CROSS_VERIFY
	rctx, cancel = e.stageCtx(ctx)
	verification := e.verifier.Verify(rctx, alert)
	cancel()

	// ADDITIONAL_SIGNALS
	rctx, cancel = e.stageCtx(ctx)
	ratePenalty := e.limiter.Penalty(rctx, alert.SubmitterID)
	suspicious := e.limiter.IsSuspicious(rctx, alert.SubmitterID)
	cancel()
	signals := BonusSignals{
		HasAttachment:      alert.HasAttachment,
		HasPreciseLocation: alert.HasPreciseLocation,
		UrgentLanguage:     DetectUrgentLanguage(alert.Message),
	}
	var signalNames []string
	if signals.HasAttachment {
		signalNames = append(signalNames, "attachment")
	}
	if signals.HasPreciseLocation {
		signalNames = append(signalNames, "precise_location")
	}
	if signals.UrgentLanguage {
		signalNames = append(signalNames, "urgent_language")
	}
	if suspicious {
		signalNames = append(signalNames, "suspicious_burst")
	}
	if dupReason != "" && !isDup {
		signalNames = append(signalNames, "corroboration")
	}

	// SCORE is the only stage whose failure is fatal to the alert.
	rctx, cancel = e.stageCtx(ctx)
	result := e.scorer.Score(rctx, ScoreInput{
		CrossScore:             verification.Score,
		ReputationContribution: contribution,
		DuplicatePenalty:       dupPenalty,
		RatePenalty:            ratePenalty,
		Signals:                signals,
		SubmitterID:            alert.SubmitterID,
		CrisisType:             alert.CrisisType,
	})
	cancel()

	alert.TrustScore = &result.Final
	alert.Verified = result.Decision == models.DecisionVerified
	alert.Decision = result.Decision

	// PERSIST_ALERT
	rctx, cancel = e.stageCtx(ctx)
	if err := e.alerts.SaveAlert(rctx, alert); err != nil {
		e.logger.Error("Failed to persist alert",
			zap.String("alert_id", alert.ID.String()), zap.Error(err))
		e.metrics.StageFailure(StagePersistAlert)
	}
	cancel()

	// LOG_ACTIVITY
	rctx, cancel = e.stageCtx(ctx)
	if err := e.limiter.Record(rctx, alert.SubmitterID); err != nil {
		e.logger.Error("Failed to record activity",
			zap.String("submitter_id", alert.SubmitterID), zap.Error(err))
		e.metrics.StageFailure(StageLogActivity)
	}
	cancel()
	e.duplicates.Record(alert)

	// LOG_VERIFICATION
	rctx, cancel = e.stageCtx(ctx)
	if err := e.audits.SaveVerificationLog(rctx, &models.VerificationLogEntry{
		AlertID:            alert.ID,
		PrimarySource:      alert.SubmitterID,
		VerifiedSources:    verification.VerifiedSources,
		ConflictingSources: verification.ConflictingSources,
		VerificationScore:  verification.Score,
		ConsensusLevel:     verification.Consensus,
		CreatedAt:          e.now(),
	}); err != nil {
		e.logger.Error("Failed to write verification log",
			zap.String("alert_id", alert.ID.String()), zap.Error(err))
		e.metrics.StageFailure(StageLogVerification)
	}
	cancel()

	// LOG_DECISION
	reasoning := result.Explanation
	if verification.Explanation != "" {
		reasoning = verification.Explanation + "; " + reasoning
	}
	rctx, cancel = e.stageCtx(ctx)
	if err := e.audits.SaveDecisionAudit(rctx, &models.DecisionAuditEntry{
		AlertID:     alert.ID,
		SubmitterID: alert.SubmitterID,
		Decision:    result.Decision,
		TrustScore:  result.Final,
		Components:  result.Components,
		Reasoning:   reasoning,
		CreatedAt:   e.now(),
	}); err != nil {
		e.logger.Error("Failed to write decision audit",
			zap.String("alert_id", alert.ID.String()), zap.Error(err))
		e.metrics.StageFailure(StageLogDecision)
	}
	cancel()

	// DOWNSTREAM_ALLOCATION
	if alert.Verified && e.allocator != nil {
		rctx, cancel = e.stageCtx(ctx)
		if err := e.allocator.Allocate(rctx, models.AllocationRequest{
			AlertID:        alert.ID.String(),
			CrisisType:     alert.CrisisType,
			Location:       alert.Location,
			Latitude:       alert.Latitude,
			Longitude:      alert.Longitude,
			Severity:       alert.Severity,
			RequiredSkills: skillsFor(alert.CrisisType),
		}); err != nil {
			e.logger.Error("Downstream allocation failed",
				zap.String("alert_id", alert.ID.String()), zap.Error(err))
			e.metrics.StageFailure(StageAllocation)
		}
		cancel()
	}

	elapsed := e.now().Sub(start)
	e.metrics.ObserveDecision(result.Decision, elapsed)
	e.logger.Info("Alert processed",
		zap.String("alert_id", alert.ID.String()),
		zap.String("submitter_id", alert.SubmitterID),
		zap.String("decision", result.Decision),
		zap.Float64("trust_score", result.Final),
		zap.Duration("elapsed", elapsed))

	return &models.DecisionRecord{
		Verified:          alert.Verified,
		TrustScore:        result.Final,
		Decision:          result.Decision,
		Status:            statusFor(result.Decision),
		SubmitterID:       alert.SubmitterID,
		AlertID:           alert.ID.String(),
		Reputation:        repScore,
		CrossVerification: verification,
		Components:        result.Components,
		Explanation:       reasoning,
		Metadata: models.DecisionMetadata{
			RatePenalty:       ratePenalty,
			DuplicatePenalty:  dupPenalty,
			AdditionalSignals: signalNames,
			CrisisType:        alert.CrisisType,
			ResponseTimeMS:    elapsed.Milliseconds(),
		},
	}, nil
}

// Feedback applies a later-arriving accuracy verdict to the
// submitter's reputation without re-running verification.
func (e *Engine) Feedback(ctx context.Context, submitterID string, wasAccurate bool) (*models.SubmitterReputation, error) {
	if submitterID == "" {
		return nil, fmt.Errorf("%w: submitter_id required", ErrValidation)
	}
	unlock := e.submitterLocks.lock(submitterID)
	defer unlock()

	rctx, cancel := e.stageCtx(ctx)
	defer cancel()
	if _, err := e.reputation.Update(rctx, submitterID, wasAccurate); err != nil {
		return nil, err
	}
	e.metrics.ObserveFeedback(wasAccurate)
	return e.reputation.GetReputation(rctx, submitterID)
}

// GetDecision returns the stored audit entry for an alert.
func (e *Engine) GetDecision(ctx context.Context, alertID uuid.UUID) (*models.DecisionAuditEntry, error) {
	rctx, cancel := e.stageCtx(ctx)
	defer cancel()
	return e.audits.GetDecisionAudit(rctx, alertID)
}

// earlyReject produces the terminal REJECTED-shaped result for
// rate-limited and high-confidence duplicate submissions. The audit
// write is best-effort.
func (e *Engine) earlyReject(ctx context.Context, alert *models.Alert, status, reason string, start time.Time) *models.DecisionRecord {
	alert.Decision = models.DecisionRejected
	zero := 0.0
	alert.TrustScore = &zero

	rctx, cancel := e.stageCtx(ctx)
	defer cancel()
	if err := e.audits.SaveDecisionAudit(rctx, &models.DecisionAuditEntry{
		AlertID:     alert.ID,
		SubmitterID: alert.SubmitterID,
		Decision:    models.DecisionRejected,
		TrustScore:  0,
		Reasoning:   reason,
		CreatedAt:   e.now(),
	}); err != nil {
		e.logger.Error("Failed to write early-reject audit",
			zap.String("alert_id", alert.ID.String()), zap.Error(err))
		e.metrics.StageFailure(StageLogDecision)
	}

	elapsed := e.now().Sub(start)
	e.metrics.ObserveDecision(models.DecisionRejected, elapsed)
	e.logger.Info("Alert rejected early",
		zap.String("alert_id", alert.ID.String()),
		zap.String("submitter_id", alert.SubmitterID),
		zap.String("status", status),
		zap.String("reason", reason))

	return &models.DecisionRecord{
		Decision:    models.DecisionRejected,
		Status:      status,
		SubmitterID: alert.SubmitterID,
		AlertID:     alert.ID.String(),
		Explanation: reason,
		Metadata: models.DecisionMetadata{
			CrisisType:     alert.CrisisType,
			ResponseTimeMS: elapsed.Milliseconds(),
		},
	}
}

// stageCtx bounds one pipeline stage's store access; the parent
// deadline still applies if shorter.
func (e *Engine) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.storeTimeout)
}

func statusFor(decision string) string {
	switch decision {
	case models.DecisionVerified:
		return models.StatusAutoVerified
	case models.DecisionReview:
		return models.StatusNeedsReview
	case models.DecisionUncertain:
		return models.StatusUncertain
	default:
		return models.StatusRejected
	}
}

func skillsFor(crisisType string) []string {
	if skills, ok := crisisSkills[crisisType]; ok {
		return skills
	}
	return []string{"general"}
}

// keyedMutex serializes work per submitter. Entries are retained for
// the process lifetime; the set is bounded by the active submitter
// population.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
