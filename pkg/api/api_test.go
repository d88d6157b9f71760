package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/internal/ledger"
	"github.com/moneypot/moneypot/pkg/api"
	"github.com/moneypot/moneypot/pkg/mocks"
	"github.com/moneypot/moneypot/pkg/types"
)

var fixedNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	store   *mocks.MockStore
	now     time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{store: mocks.NewMockStore(), now: fixedNow}
	service, err := ledger.NewService(ledger.Options{
		Store: ts.store,
		Clock: func() time.Time { return ts.now },
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ts.handler = api.NewServer(api.Config{}, service, nil).Handler()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set(api.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func (ts *testServer) createPot(t *testing.T, target string) types.MoneyPot {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/pots", "user-1", map[string]interface{}{
		"title":         "Team gift",
		"target_amount": target,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var pot types.MoneyPot
	decode(t, rec, &pot)
	return pot
}

func (ts *testServer) join(t *testing.T, potID, name string, max float64) types.Participant {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/pots/"+potID+"/participants", "", map[string]interface{}{
		"name":       name,
		"max_pledge": max,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var p types.Participant
	decode(t, rec, &p)
	return p
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	if rec.Header().Get(api.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}

func TestPotLifecycle(t *testing.T) {
	ts := newTestServer(t)
	pot := ts.createPot(t, "120")

	alice := ts.join(t, pot.ID, "Alice", 10)
	ts.join(t, pot.ID, "Bob", 100)
	ts.join(t, pot.ID, "Cara", 100)

	if alice.CalculatedContribution.String() != "10" {
		t.Errorf("expected Alice at 10, got %s", alice.CalculatedContribution)
	}

	rec := ts.do(t, http.MethodGet, "/pots/"+pot.ShareCode, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary types.PotSummary
	decode(t, rec, &summary)

	if summary.ParticipantCount != 3 || !summary.IsFunded {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if !summary.TotalContribution.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected contributions to total 120, got %s", summary.TotalContribution)
	}

	rec = ts.do(t, http.MethodDelete, "/participants/"+alice.ID, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/pots/"+pot.ID+"/distribution", "", nil)
	var dist types.Distribution
	decode(t, rec, &dist)
	for _, p := range dist.Participants {
		if !p.CalculatedContribution.Equal(decimal.NewFromInt(60)) {
			t.Errorf("%s: expected 60 after Alice left, got %s", p.Name, p.CalculatedContribution)
		}
	}
}

func TestListPots(t *testing.T) {
	ts := newTestServer(t)
	ts.createPot(t, "10")

	rec := ts.do(t, http.MethodGet, "/pots?creator=user-1", "", nil)
	var pots []types.MoneyPot
	decode(t, rec, &pots)
	if len(pots) != 1 {
		t.Errorf("expected 1 pot, got %d", len(pots))
	}

	rec = ts.do(t, http.MethodGet, "/pots", "nobody", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAllocateEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/allocate", "", map[string]interface{}{
		"target_amount": "100",
		"participants": []map[string]interface{}{
			{"id": "A", "max_pledge": 10},
			{"id": "B", "max_pledge": 20},
			{"id": "C", "max_pledge": 100},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var dist types.Distribution
	decode(t, rec, &dist)
	want := []string{"10.00", "20.00", "70.00"}
	for i, p := range dist.Participants {
		if got := p.CalculatedContribution.StringFixed(2); got != want[i] {
			t.Errorf("%s: expected %s, got %s", p.ID, want[i], got)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	pot := ts.createPot(t, "50")

	expiry := fixedNow.Add(time.Hour)
	rec := ts.do(t, http.MethodPost, "/pots", "user-1", map[string]interface{}{
		"title":           "Soon",
		"target_amount":   "5",
		"expiration_date": expiry,
	})
	var expiring types.MoneyPot
	decode(t, rec, &expiring)
	ts.now = fixedNow.Add(2 * time.Hour)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   interface{}
		status int
		code   string
	}{
		{"missing user", http.MethodPost, "/pots", "", map[string]string{"title": "x", "target_amount": "1"}, http.StatusUnauthorized, "unauthenticated"},
		{"invalid pot", http.MethodPost, "/pots", "user-1", map[string]string{"title": "", "target_amount": "1"}, http.StatusBadRequest, "invalid_input"},
		{"bad json", http.MethodPost, "/pots", "user-1", "not an object", http.StatusBadRequest, "invalid_json"},
		{"unknown share code", http.MethodGet, "/pots/zzzzzzzz", "", nil, http.StatusNotFound, "pot_not_found"},
		{"unknown participant", http.MethodDelete, "/participants/ghost", "", nil, http.StatusNotFound, "participant_not_found"},
		{"zero pledge", http.MethodPost, "/pots/" + pot.ID + "/participants", "", map[string]interface{}{"name": "A", "max_pledge": 0}, http.StatusBadRequest, "invalid_input"},
		{"expired pot", http.MethodPost, "/pots/" + expiring.ID + "/participants", "", map[string]interface{}{"name": "A", "max_pledge": 1}, http.StatusConflict, "pot_expired"},
		{"negative cap", http.MethodPost, "/allocate", "", map[string]interface{}{"target_amount": 1, "participants": []map[string]interface{}{{"id": "A", "max_pledge": -1}}}, http.StatusBadRequest, "invalid_input"},
		{"unknown route", http.MethodGet, "/nope", "", nil, http.StatusNotFound, "endpoint_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.user, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			var resp api.ErrorResponse
			decode(t, rec, &resp)
			if resp.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Code)
			}
			if resp.RequestID == "" {
				t.Error("expected request id in error body")
			}
		})
	}
}
