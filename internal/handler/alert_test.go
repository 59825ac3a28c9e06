package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/engine"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	store := repository.NewMemoryStore()

	eng := engine.NewEngine(
		engine.NewRateLimiter(store, engine.RateLimitConfig{
			MaxPerHour: 10, MaxPerDay: 50, BlockDuration: time.Hour,
		}, logger),
		engine.NewDuplicateDetector(engine.DuplicateConfig{
			Window: 10 * time.Minute, MaxEntries: 1000, OverlapThreshold: 0.7,
			ExactPenalty: 0.8, NearPenalty: 0.6,
			CorroborationWindow: 30 * time.Minute, CorroborationMinReports: 5, CorroborationBonus: 0.2,
		}, logger),
		engine.NewReputationManager(store, engine.ReputationConfig{
			Initial: 0.5, Min: 0, Max: 1, AccurateGain: 0.15,
			InaccurateDecay: 0.9, InaccuratePenalty: 0.05, SourceDecay: 0.95, SourceStep: 0.05,
		}, logger),
		engine.NewCrossVerifier(store, engine.VerifyConfig{
			Window: time.Hour, RadiusKM: 10, MinSourcesHigh: 3, MinSourcesMedium: 2,
		}, logger),
		engine.NewTrustScorer(store, engine.ScoringConfig{
			WCross: 0.5, WReputation: 0.3, WDuplicate: 0.2, WRate: 0.2,
			AutoVerify: 0.75, NeedsReview: 0.50, Reject: 0.25,
			CriticalDelta: -0.15, HighDelta: -0.10, OtherDelta: 0.10,
			HistoryDecay: 0.95, HistoryWindow: 50, HistoryMinEntries: 5,
		}, logger),
		store, store, nil, nil, 2*time.Second, logger,
	)

	router := gin.New()
	h := NewAlertHandler(eng, logger)
	router.POST("/api/alerts", h.SubmitAlert)
	router.POST("/api/feedback", h.Feedback)
	router.GET("/api/decisions/:alert_id", h.GetDecision)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitAlert(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/alerts", gin.H{
		"submitter_id": "user-1",
		"crisis_type":  "flood",
		"location":     "riverside district",
		"message":      "water rising near the bridge",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var record models.DecisionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatal(err)
	}
	if record.AlertID == "" || record.Decision == "" {
		t.Errorf("incomplete decision record: %+v", record)
	}
}

func TestSubmitAlertRejectsBadPayloads(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing submitter", gin.H{"crisis_type": "flood", "location": "x", "message": "m"}},
		{"missing message", gin.H{"submitter_id": "u", "crisis_type": "flood", "location": "x"}},
		{"bad severity", gin.H{
			"submitter_id": "u", "crisis_type": "flood", "location": "x",
			"message": "m", "severity": "catastrophic"}},
		{"latitude out of range", gin.H{
			"submitter_id": "u", "crisis_type": "flood", "location": "x",
			"message": "m", "latitude": 120.0, "longitude": 10.0}},
		{"bad alert id", gin.H{
			"submitter_id": "u", "crisis_type": "flood", "location": "x",
			"message": "m", "alert_id": "not-a-uuid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/alerts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSubmitAlertMalformedJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/alerts", bytes.NewReader([]byte("{broken")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/feedback", gin.H{
		"submitter_id": "user-1",
		"was_accurate": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Reputation models.SubmitterReputation `json:"reputation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Reputation.TotalReports != 1 {
		t.Errorf("total reports = %d, want 1", resp.Reputation.TotalReports)
	}

	// was_accurate must be explicit, not defaulted.
	rec = doJSON(t, router, http.MethodPost, "/api/feedback", gin.H{"submitter_id": "user-1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when was_accurate is absent", rec.Code)
	}
}

func TestGetDecisionEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/alerts", gin.H{
		"submitter_id": "user-1",
		"crisis_type":  "flood",
		"location":     "riverside district",
		"message":      "water rising near the bridge",
	})
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	var record models.DecisionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/decisions/"+record.AlertID, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Errorf("status = %d, body %s", getRec.Code, getRec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/decisions/not-a-uuid", nil)
	getRec = httptest.NewRecorder()
	router.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed id", getRec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/decisions/00000000-0000-0000-0000-000000000001", nil)
	getRec = httptest.NewRecorder()
	router.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown alert", getRec.Code)
	}
}
