package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/metrics"
	"alcyxob/runplan/internal/planner"
	"alcyxob/runplan/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	testSecret    = "test-secret"
	testIngestKey = "ingest-key"
)

var testNow = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

// --- service stubs ---

type stubPlanService struct {
	generate func(ownerID, raceID primitive.ObjectID, age int) (*domain.TrainingPlan, error)
	get      func(ownerID, raceID primitive.ObjectID) (*domain.TrainingPlan, error)
	activate func(ownerID, planID primitive.ObjectID) (*domain.TrainingPlan, error)
}

func (s *stubPlanService) GeneratePlan(_ context.Context, ownerID, raceID primitive.ObjectID, age int) (*domain.TrainingPlan, error) {
	return s.generate(ownerID, raceID, age)
}

func (s *stubPlanService) GetPlanForRace(_ context.Context, ownerID, raceID primitive.ObjectID) (*domain.TrainingPlan, error) {
	return s.get(ownerID, raceID)
}

func (s *stubPlanService) ActivatePlan(_ context.Context, ownerID, planID primitive.ObjectID) (*domain.TrainingPlan, error) {
	return s.activate(ownerID, planID)
}

type stubDayService struct {
	service.TrainingDayService // unimplemented methods panic

	today    func(ownerID primitive.ObjectID) (*domain.TrainingDay, error)
	byDate   func(ownerID primitive.ObjectID, date time.Time) (*domain.TrainingDay, error)
	feedback func(ownerID, dayID primitive.ObjectID, in service.FeedbackInput) (*domain.TrainingDay, error)
	summary  func(ownerID primitive.ObjectID, week int) (*domain.WeeklySummary, error)
	rawURL   func(ownerID, dayID primitive.ObjectID) (string, error)
}

func (s *stubDayService) GetTodayWorkout(_ context.Context, ownerID primitive.ObjectID) (*domain.TrainingDay, error) {
	return s.today(ownerID)
}

func (s *stubDayService) GetDayByDate(_ context.Context, ownerID primitive.ObjectID, date time.Time) (*domain.TrainingDay, error) {
	return s.byDate(ownerID, date)
}

func (s *stubDayService) SubmitFeedback(_ context.Context, ownerID, dayID primitive.ObjectID, in service.FeedbackInput) (*domain.TrainingDay, error) {
	return s.feedback(ownerID, dayID, in)
}

func (s *stubDayService) GetWeeklySummary(_ context.Context, ownerID primitive.ObjectID, week int) (*domain.WeeklySummary, error) {
	return s.summary(ownerID, week)
}

func (s *stubDayService) GetRawActivityURL(_ context.Context, ownerID, dayID primitive.ObjectID) (string, error) {
	return s.rawURL(ownerID, dayID)
}

type stubReconcileService struct {
	hydrate func(ownerID primitive.ObjectID, date time.Time, a domain.ExternalActivity) (*domain.TrainingDay, error)
}

func (s *stubReconcileService) Hydrate(_ context.Context, ownerID primitive.ObjectID, date time.Time, a domain.ExternalActivity) (*domain.TrainingDay, error) {
	return s.hydrate(ownerID, date, a)
}

// --- helpers ---

func newTestRouter(plans service.PlanService, days service.TrainingDayService, reconcile service.ReconcileService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, RouteConfig{
		JWTSecret:    testSecret,
		IngestAPIKey: testIngestKey,
		Metrics:      metrics.New(prometheus.NewRegistry()),
		Now:          func() time.Time { return testNow },
	}, plans, days, reconcile)
	return router
}

func signToken(t *testing.T, userID string, secret string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expires)},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func doRequest(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sampleDay(owner primitive.ObjectID) *domain.TrainingDay {
	return &domain.TrainingDay{
		ID:             primitive.NewObjectID(),
		UserID:         owner,
		TrainingPlanID: primitive.NewObjectID(),
		Date:           domain.DateOnly(testNow),
		DayName:        "Monday",
		Phase:          "build",
		Planned:        domain.PlannedWorkout{Type: domain.WorkoutEasy, Mileage: 5, TargetPace: "9:30"},
	}
}

// --- tests ---

func TestAuthMiddleware(t *testing.T) {
	owner := primitive.NewObjectID()
	router := newTestRouter(nil, nil, nil)

	tests := []struct {
		name     string
		token    string
		header   string
		wantCode int
	}{
		{"missing header", "", "", http.StatusUnauthorized},
		{"wrong scheme", "", "Basic abc", http.StatusUnauthorized},
		{"bad signature", signToken(t, owner.Hex(), "other-secret", time.Now().Add(time.Hour)), "", http.StatusUnauthorized},
		{"expired", signToken(t, owner.Hex(), testSecret, time.Now().Add(-time.Minute)), "", http.StatusUnauthorized},
		{"not an object id", signToken(t, "user-1", testSecret, time.Now().Add(time.Hour)), "", http.StatusUnauthorized},
		{"valid", signToken(t, owner.Hex(), testSecret, time.Now().Add(time.Hour)), "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			switch {
			case tt.header != "":
				req.Header.Set("Authorization", tt.header)
			case tt.token != "":
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestGeneratePlanHandler(t *testing.T) {
	owner := primitive.NewObjectID()
	raceID := primitive.NewObjectID()
	token := signToken(t, owner.Hex(), testSecret, time.Now().Add(time.Hour))

	tests := []struct {
		name     string
		path     string
		body     any
		err      error
		wantCode int
		wantAge  int
	}{
		{"created", "/api/v1/races/" + raceID.Hex() + "/plan", map[string]int{"athleteAge": 42}, nil, http.StatusCreated, 42},
		{"created without body", "/api/v1/races/" + raceID.Hex() + "/plan", nil, nil, http.StatusCreated, 0},
		{"bad race id", "/api/v1/races/nope/plan", nil, nil, http.StatusBadRequest, 0},
		{"bad age", "/api/v1/races/" + raceID.Hex() + "/plan", map[string]int{"athleteAge": 500}, nil, http.StatusBadRequest, 0},
		{"race too close", "/api/v1/races/" + raceID.Hex() + "/plan", nil, planner.ErrInsufficientLeadTime, http.StatusBadRequest, 0},
		{"already generated", "/api/v1/races/" + raceID.Hex() + "/plan", nil, service.ErrPlanAlreadyGenerated, http.StatusConflict, 0},
		{"duplicate day", "/api/v1/races/" + raceID.Hex() + "/plan", nil, service.ErrDuplicateTrainingDay, http.StatusConflict, 0},
		{"someone else's race", "/api/v1/races/" + raceID.Hex() + "/plan", nil, service.ErrAccessDenied, http.StatusForbidden, 0},
		{"race not found", "/api/v1/races/" + raceID.Hex() + "/plan", nil, service.ErrRaceNotFound, http.StatusNotFound, 0},
		{"days not published", "/api/v1/races/" + raceID.Hex() + "/plan", nil, service.ErrDaysNotPublished, http.StatusServiceUnavailable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotAge := -1
			plans := &stubPlanService{generate: func(o, r primitive.ObjectID, age int) (*domain.TrainingPlan, error) {
				assert.Equal(t, owner, o)
				assert.Equal(t, raceID, r)
				gotAge = age
				if tt.err != nil {
					return nil, tt.err
				}
				return &domain.TrainingPlan{ID: primitive.NewObjectID(), UserID: o, RaceID: r, TotalWeeks: 12, Status: domain.PlanStatusDraft}, nil
			}}
			router := newTestRouter(plans, nil, nil)

			rec := doRequest(router, http.MethodPost, tt.path, token, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode == http.StatusCreated {
				assert.Equal(t, tt.wantAge, gotAge)
				var resp TrainingPlanResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, raceID.Hex(), resp.RaceID)
				assert.Equal(t, 12, resp.TotalWeeks)
				assert.Equal(t, domain.PlanStatusDraft, resp.Status)
			}
		})
	}
}

func TestActivatePlanHandler(t *testing.T) {
	owner := primitive.NewObjectID()
	planID := primitive.NewObjectID()
	token := signToken(t, owner.Hex(), testSecret, time.Now().Add(time.Hour))

	plans := &stubPlanService{activate: func(o, p primitive.ObjectID) (*domain.TrainingPlan, error) {
		if p != planID {
			return nil, service.ErrPlanNotFound
		}
		return &domain.TrainingPlan{ID: p, UserID: o, Status: domain.PlanStatusActive}, nil
	}}
	router := newTestRouter(plans, nil, nil)

	rec := doRequest(router, http.MethodPost, "/api/v1/plans/"+planID.Hex()+"/activate", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"active"`)

	rec = doRequest(router, http.MethodPost, "/api/v1/plans/"+primitive.NewObjectID().Hex()+"/activate", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrainingDayHandlers(t *testing.T) {
	owner := primitive.NewObjectID()
	token := signToken(t, owner.Hex(), testSecret, time.Now().Add(time.Hour))
	day := sampleDay(owner)

	days := &stubDayService{
		today: func(o primitive.ObjectID) (*domain.TrainingDay, error) { return day, nil },
		byDate: func(o primitive.ObjectID, date time.Time) (*domain.TrainingDay, error) {
			if !date.Equal(domain.DateOnly(testNow)) {
				return nil, service.ErrTrainingDayNotFound
			}
			return day, nil
		},
		summary: func(o primitive.ObjectID, week int) (*domain.WeeklySummary, error) {
			if week > 11 {
				return nil, service.ErrInvalidWeekIndex
			}
			return &domain.WeeklySummary{WeekIndex: week, TotalWorkouts: 5, CompletedWorkouts: 2, CompletionRate: 40}, nil
		},
		rawURL: func(o, d primitive.ObjectID) (string, error) {
			if d != day.ID {
				return "", service.ErrRawPayloadMissing
			}
			return "https://archive.test/payload", nil
		},
	}
	router := newTestRouter(nil, days, nil)

	t.Run("today", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/v1/days/today", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp TrainingDayResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, day.ID.Hex(), resp.ID)
		assert.Equal(t, "2026-03-02", resp.Date)
		assert.Equal(t, domain.DayStatusPending, resp.Status)
	})

	t.Run("by date", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/v1/days/date/2026-03-02", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(router, http.MethodGet, "/api/v1/days/date/2026-03-09", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = doRequest(router, http.MethodGet, "/api/v1/days/date/03-02-2026", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("weekly summary", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/v1/weeks/3/summary", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp domain.WeeklySummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.WeekIndex)
		assert.Equal(t, 40.0, resp.CompletionRate)

		rec = doRequest(router, http.MethodGet, "/api/v1/weeks/12/summary", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(router, http.MethodGet, "/api/v1/weeks/three/summary", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("raw activity", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/v1/days/"+day.ID.Hex()+"/raw-activity", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp RawActivityURLResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "https://archive.test/payload", resp.URL)
		assert.Equal(t, 900, resp.ExpiresIn)

		rec = doRequest(router, http.MethodGet, "/api/v1/days/"+primitive.NewObjectID().Hex()+"/raw-activity", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSubmitFeedbackHandler(t *testing.T) {
	owner := primitive.NewObjectID()
	token := signToken(t, owner.Hex(), testSecret, time.Now().Add(time.Hour))
	day := sampleDay(owner)

	var got service.FeedbackInput
	days := &stubDayService{feedback: func(o, d primitive.ObjectID, in service.FeedbackInput) (*domain.TrainingDay, error) {
		got = in
		if in.Effort != nil && *in.Effort > 10 {
			return nil, service.ErrInvalidFeedback
		}
		if in.Mood != nil && *in.Mood == "raced" {
			return nil, service.ErrConcurrentUpdate
		}
		out := *day
		out.Feedback.InjuryFlag = in.InjuryFlag != nil && *in.InjuryFlag
		return &out, nil
	}}
	router := newTestRouter(nil, days, nil)
	path := "/api/v1/days/" + day.ID.Hex() + "/feedback"

	rec := doRequest(router, http.MethodPost, path, token, map[string]any{"injuryFlag": true, "mood": "sore"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.InjuryFlag)
	assert.True(t, *got.InjuryFlag)
	require.NotNil(t, got.Mood)
	assert.Equal(t, "sore", *got.Mood)
	assert.Nil(t, got.Effort, "omitted fields stay nil")

	rec = doRequest(router, http.MethodPost, path, token, map[string]any{"effort": 12})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, path, token, map[string]any{"mood": "raced"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/v1/days/xyz/feedback", token, map[string]any{"mood": "ok"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestTelemetryHandler(t *testing.T) {
	owner := primitive.NewObjectID()
	day := sampleDay(owner)

	reconcile := &stubReconcileService{hydrate: func(o primitive.ObjectID, date time.Time, a domain.ExternalActivity) (*domain.TrainingDay, error) {
		assert.Equal(t, owner, o)
		assert.Equal(t, o, a.UserID)
		switch a.ProviderActivityID {
		case "unplanned":
			return nil, service.ErrNoPlannedDay
		case "broken":
			return nil, service.ErrMalformedActivity
		case "raced":
			return nil, service.ErrConcurrentUpdate
		}
		out := *day
		out.Actual = domain.ActualWorkout{Completed: true, Mileage: *a.Mileage, ActivityID: a.ProviderActivityID}
		return &out, nil
	}}
	router := newTestRouter(nil, nil, reconcile)

	body := func(id string) map[string]any {
		return map[string]any{
			"userId":             owner.Hex(),
			"activityDate":       testNow.Format(time.RFC3339),
			"providerActivityId": id,
			"mileage":            5.2,
			"duration":           48.5,
			"raw":                map[string]any{"source": "watch"},
		}
	}
	post := func(key string, payload any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(payload)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/telemetry", &buf)
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set(IngestKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := post(testIngestKey, body("run-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TrainingDayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Actual.Completed)
	assert.Equal(t, 5.2, resp.Actual.Mileage)
	assert.Equal(t, domain.DayStatusCompleted, resp.Status)

	assert.Equal(t, http.StatusNoContent, post(testIngestKey, body("unplanned")).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, post(testIngestKey, body("broken")).Code)
	assert.Equal(t, http.StatusConflict, post(testIngestKey, body("raced")).Code)
	assert.Equal(t, http.StatusUnauthorized, post("wrong", body("run-1")).Code)
	assert.Equal(t, http.StatusUnauthorized, post("", body("run-1")).Code)

	missingUser := body("run-1")
	delete(missingUser, "userId")
	assert.Equal(t, http.StatusBadRequest, post(testIngestKey, missingUser).Code)
}

func TestIngestDisabledWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, RouteConfig{JWTSecret: testSecret}, nil, nil, &stubReconcileService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/telemetry", bytes.NewBufferString("{}"))
	req.Header.Set(IngestKeyHeader, "")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPingAndMetrics(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	rec := doRequest(router, http.MethodGet, "/ping", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rec.Body.String())

	rec = doRequest(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
