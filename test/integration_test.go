//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneypot/moneypot/internal/ledger"
	"github.com/moneypot/moneypot/internal/store"
	"github.com/moneypot/moneypot/internal/watcher"
	"github.com/moneypot/moneypot/pkg/api"
	"github.com/moneypot/moneypot/pkg/logger"
	"github.com/moneypot/moneypot/pkg/types"
)

func newStack(t *testing.T) (string, *store.FileStore, *ledger.Service) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "pots")
	st, err := store.NewFileStore(dir, logger.Discard())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	svc, err := ledger.NewService(ledger.Options{Store: st})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return dir, st, svc
}

func contributions(t *testing.T, svc *ledger.Service, potID string) map[string]string {
	t.Helper()

	summary, err := svc.GetPot(context.Background(), potID)
	if err != nil {
		t.Fatalf("failed to load pot: %v", err)
	}
	out := make(map[string]string, len(summary.Participants))
	for _, p := range summary.Participants {
		out[p.Name] = p.CalculatedContribution.StringFixed(2)
	}
	return out
}

// TestEndToEndHTTP drives a pot through the API backed by the file store
func TestEndToEndHTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	_, _, svc := newStack(t)
	srv := httptest.NewServer(api.NewServer(api.DefaultConfig(), svc, logger.Discard()).Handler())
	defer srv.Close()

	post := func(path, user string, body any) *http.Response {
		t.Helper()
		data, _ := json.Marshal(body)
		req, _ := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
		if user != "" {
			req.Header.Set(api.UserHeader, user)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		return resp
	}

	resp := post("/pots", "alice", map[string]any{"title": "Trip", "target_amount": "300"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var pot types.MoneyPot
	json.NewDecoder(resp.Body).Decode(&pot)
	resp.Body.Close()

	for _, p := range []struct{ name, max string }{{"alice", "50"}, {"bob", "200"}, {"cara", "200"}} {
		resp := post("/pots/"+pot.ID+"/participants", "", map[string]any{"name": p.name, "max_pledge": p.max})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("join %s status = %d", p.name, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/pots/" + pot.ShareCode)
	if err != nil {
		t.Fatal(err)
	}
	var summary types.PotSummary
	json.NewDecoder(resp.Body).Decode(&summary)
	resp.Body.Close()

	if summary.Status != types.PotStatusFunded {
		t.Errorf("status = %s, want funded", summary.Status)
	}
	if !summary.TotalContribution.Equal(decimal.NewFromInt(300)) {
		t.Errorf("total contribution = %s, want 300", summary.TotalContribution)
	}

	want := map[string]string{"alice": "50.00", "bob": "125.00", "cara": "125.00"}
	got := contributions(t, svc, pot.ID)
	for name, amount := range want {
		if got[name] != amount {
			t.Errorf("%s contribution = %s, want %s", name, got[name], amount)
		}
	}
}

// TestWatcherRecalculatesEditedPot edits a pot file by hand and waits for
// the watcher to bring its contributions back in line
func TestWatcherRecalculatesEditedPot(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir, _, svc := newStack(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pot, err := svc.CreatePot(ctx, "alice", types.CreatePotData{Title: "Gift", TargetAmount: decimal.NewFromInt(90)})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"alice", "bob", "cara"} {
		if _, err := svc.JoinPot(ctx, pot.ID, types.JoinPotData{Name: name, MaxPledge: decimal.NewFromInt(100)}); err != nil {
			t.Fatal(err)
		}
	}

	w := watcher.New(dir, 100*time.Millisecond, logger.Discard())
	var mu sync.Mutex
	var events []watcher.Event
	err = w.Start(ctx, func(ctx context.Context, event watcher.Event) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
		if event.Type == watcher.EventTypeChanged {
			svc.Recalculate(ctx, event.PotID)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	// Cap alice at 10 directly in the file.
	path := filepath.Join(dir, pot.ID+store.FileExt)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Pot          json.RawMessage     `json:"pot"`
		Participants []types.Participant `json:"participants"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for i := range doc.Participants {
		if doc.Participants[i].Name == "alice" {
			doc.Participants[i].MaxPledge = decimal.NewFromInt(10)
		}
	}
	data, _ = json.MarshalIndent(doc, "", "  ")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	want := map[string]string{"alice": "10.00", "bob": "40.00", "cara": "40.00"}
	deadline := time.Now().Add(5 * time.Second)
	for {
		got := contributions(t, svc, pot.ID)
		if got["alice"] == want["alice"] && got["bob"] == want["bob"] && got["cara"] == want["cara"] {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("contributions not recalculated: %v", got)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	w.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 {
		t.Error("expected at least one watcher event")
	}
}
