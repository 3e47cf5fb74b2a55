package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/gorm"

	"pet-feeding/internal/apperr"
	"pet-feeding/internal/model"
	"pet-feeding/internal/service"
	"pet-feeding/internal/testutil"
)

var fixedNow = time.Date(2024, 1, 1, 12, 50, 0, 0, time.UTC)

type fakeUsers map[string]*model.User

func (f fakeUsers) FindByAPIToken(_ context.Context, token string) (*model.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeRunner struct {
	calls  int
	result service.RunResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, _ time.Time) (service.RunResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeFeedings struct {
	registered []service.FeedingInput
	err        error
}

func (f *fakeFeedings) Register(_ context.Context, in service.FeedingInput, now time.Time) (*model.FeedingLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.registered = append(f.registered, in)
	fedAt := in.FedAt
	if fedAt.IsZero() {
		fedAt = now
	}
	return &model.FeedingLog{ID: 7, CatID: in.CatID, FedBy: in.UserID, FedAt: fedAt}, nil
}

func (f *fakeFeedings) NextFeeding(_ context.Context, catID, userID uint, now time.Time) (service.NextFeedingInfo, error) {
	if f.err != nil {
		return service.NextFeedingInfo{}, f.err
	}
	next := now.Add(time.Hour)
	return service.NextFeedingInfo{CatID: catID, NextFeeding: &next}, nil
}

func testRouter(t *testing.T, secret string) (http.Handler, *fakeRunner, *fakeFeedings) {
	t.Helper()
	runner := &fakeRunner{result: service.RunResult{
		Delivery: service.DeliveryReport{
			Due:       2,
			Delivered: 1,
			Items:     []service.DeliveredItem{{ID: 1, UserID: 2, Type: model.NotificationReminder, Title: "Feeding reminder"}},
		},
		Missed: service.MissedReport{Inserted: 3},
	}}
	feedings := &fakeFeedings{}
	router := NewRouter(Deps{
		Runner:     runner,
		Feedings:   feedings,
		Users:      fakeUsers{"tok-ana": {ID: 2, Name: "ana"}},
		CronSecret: secret,
		Log:        testutil.Logger(),
		Now:        func() time.Time { return fixedNow },
	})
	return router, runner, feedings
}

func do(router http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthLive(t *testing.T) {
	router, _, _ := testRouter(t, "")
	w := do(router, http.MethodGet, "/health/live", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestDeliverAuth(t *testing.T) {
	const path = "/api/v2/scheduled-notifications/deliver"
	tests := []struct {
		name   string
		secret string
		header map[string]string
		want   int
	}{
		{"no credentials", "s3cret", nil, http.StatusUnauthorized},
		{"wrong secret", "s3cret", map[string]string{"X-Cron-Secret": "nope"}, http.StatusUnauthorized},
		{"cron secret", "s3cret", map[string]string{"X-Cron-Secret": "s3cret"}, http.StatusOK},
		{"empty configured secret never matches", "", map[string]string{"X-Cron-Secret": ""}, http.StatusUnauthorized},
		{"user token", "", map[string]string{"Authorization": "Bearer tok-ana"}, http.StatusOK},
		{"unknown token", "s3cret", map[string]string{"Authorization": "Bearer tok-zed"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, runner, _ := testRouter(t, tt.secret)
			w := do(router, http.MethodPost, path, nil, tt.header)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
			if tt.want != http.StatusOK && runner.calls != 0 {
				t.Error("runner must not run without credentials")
			}
		})
	}
}

func TestDeliverResponseShape(t *testing.T) {
	router, runner, _ := testRouter(t, "s3cret")
	w := do(router, http.MethodPost, "/api/v2/scheduled-notifications/deliver", nil, map[string]string{"X-Cron-Secret": "s3cret"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Delivered     int               `json:"delivered"`
			Notifications []json.RawMessage `json:"notifications"`
			Warnings      int               `json:"warnings"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Data.Delivered != 1 || len(body.Data.Notifications) != 1 || body.Data.Warnings != 3 {
		t.Errorf("body = %s", w.Body.String())
	}
	if runner.calls != 1 {
		t.Errorf("runner calls = %d", runner.calls)
	}
}

func TestDeliverFailureHidesDetails(t *testing.T) {
	router, runner, _ := testRouter(t, "s3cret")
	runner.err = fmt.Errorf("deliver notifications: %w", apperr.ErrInternal)

	w := do(router, http.MethodPost, "/api/v2/scheduled-notifications/deliver", nil, map[string]string{"X-Cron-Secret": "s3cret"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("deliver notifications")) {
		t.Errorf("internal detail leaked: %s", w.Body.String())
	}
}

func TestNextFeedingEndpoint(t *testing.T) {
	router, _, feedings := testRouter(t, "")
	auth := map[string]string{"Authorization": "Bearer tok-ana"}

	if w := do(router, http.MethodGet, "/api/v2/cats/1/next-feeding", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d", w.Code)
	}
	if w := do(router, http.MethodGet, "/api/v2/cats/abc/next-feeding", nil, auth); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", w.Code)
	}
	w := do(router, http.MethodGet, "/api/v2/cats/1/next-feeding", nil, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	feedings.err = fmt.Errorf("cat 1: %w", apperr.ErrForbidden)
	if w := do(router, http.MethodGet, "/api/v2/cats/1/next-feeding", nil, auth); w.Code != http.StatusForbidden {
		t.Errorf("forbidden status = %d", w.Code)
	}
}

func TestCreateFeedingEndpoint(t *testing.T) {
	router, _, feedings := testRouter(t, "")
	auth := map[string]string{"Authorization": "Bearer tok-ana"}

	w := do(router, http.MethodPost, "/api/v2/feedings", map[string]any{"catId": 1, "unit": "g", "amount": 40}, auth)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(feedings.registered) != 1 || feedings.registered[0].UserID != 2 || feedings.registered[0].CatID != 1 {
		t.Errorf("registered = %+v", feedings.registered)
	}

	invalid := []map[string]any{
		{"unit": "g"},
		{"catId": 1, "amount": -1},
		{"catId": 1, "mealType": "brunch"},
		{"catId": 1, "fedAt": fixedNow.Add(time.Hour)},
	}
	for _, body := range invalid {
		if w := do(router, http.MethodPost, "/api/v2/feedings", body, auth); w.Code != http.StatusBadRequest {
			t.Errorf("body %v: status = %d", body, w.Code)
		}
	}

	feedings.err = fmt.Errorf("cat 1: %w", apperr.ErrDuplicateFeeding)
	if w := do(router, http.MethodPost, "/api/v2/feedings", map[string]any{"catId": 1}, auth); w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d", w.Code)
	}
}

func TestWriteAppErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.ErrNotFound, http.StatusNotFound},
		{apperr.ErrForbidden, http.StatusForbidden},
		{apperr.ErrDuplicateFeeding, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeAppError(w, testutil.Logger(), fmt.Errorf("wrapped: %w", tt.err))
		if w.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}
