package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	apimw "github.com/upmesh/upmesh/internal/httpapi/middleware"
	"github.com/upmesh/upmesh/internal/ingest"
	"github.com/upmesh/upmesh/internal/repo/memory"
)

// ---- test helpers ----

func setupServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	log := zap.NewNop()
	store := memory.New()

	svc := ingest.New(log, store, store, store)
	srv := NewServer(log, store, store, store, svc)

	keys := apimw.Keys{
		Public: []string{"pub_test"},
		Admin:  []string{"adm_test"},
	}

	// very high rate limits to avoid flakiness in tests
	h := srv.Router(keys, nil, 10_000, 10_000, 10_000, 10_000)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, store
}

func doJSON(t *testing.T, method, url, apiKey string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, url, rd)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var m map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&m)
	return resp, m
}

func seedWebsiteAndValidator(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, m := doJSON(t, http.MethodPost, ts.URL+"/api/v1/website", "adm_test",
		map[string]string{"url": "https://a.example", "userId": "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create website: %d %v", resp.StatusCode, m)
	}
	websiteID, _ := m["id"].(string)
	if websiteID == "" {
		t.Fatalf("no website id in %v", m)
	}
	resp, m = doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator", "adm_test",
		map[string]string{"publicKey": "V1", "location": "fra"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register validator: %d %v", resp.StatusCode, m)
	}
	return websiteID
}

// ---- tests ----

func TestReport_GoodTick(t *testing.T) {
	ts, _ := setupServer(t)
	websiteID := seedWebsiteAndValidator(t, ts)

	resp, m := doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator/report", "",
		map[string]any{"url": "https://a.example", "status": "up", "code": 200, "validator": "V1", "latency": 41.5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d %v", resp.StatusCode, m)
	}
	if m["success"] != true {
		t.Fatalf("want success true, got %v", m)
	}
	tick, _ := m["tick"].(map[string]any)
	if tick == nil || tick["status"] != "Good" {
		t.Fatalf("want Good tick, got %v", m)
	}
	if tick["websiteId"] != websiteID {
		t.Fatalf("tick bound to wrong website: %v", tick)
	}
	if tick["latency"] != 41.5 {
		t.Fatalf("latency not recorded: %v", tick["latency"])
	}
}

func TestReport_BadTickOn503(t *testing.T) {
	ts, _ := setupServer(t)
	seedWebsiteAndValidator(t, ts)

	resp, m := doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator/report", "",
		map[string]any{"url": "https://a.example", "code": 503, "validator": "V1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	tick, _ := m["tick"].(map[string]any)
	if tick == nil || tick["status"] != "Bad" {
		t.Fatalf("want Bad tick, got %v", m)
	}
}

func TestReport_UnknownValidator404StoreUnchanged(t *testing.T) {
	ts, _ := setupServer(t)
	websiteID := seedWebsiteAndValidator(t, ts)

	resp, m := doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator/report", "",
		map[string]any{"url": "https://a.example", "code": 200, "validator": "unknown-key"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d", resp.StatusCode)
	}
	if m["message"] != "Validator not found" {
		t.Fatalf("wrong message: %v", m)
	}

	// store unchanged
	resp, m = doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/website/status?websiteId="+websiteID, "pub_test", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status read: %d", resp.StatusCode)
	}
	if m["lastStatus"] != nil {
		t.Fatalf("rejected report wrote a tick: %v", m["lastStatus"])
	}
}

func TestReport_UnknownWebsite404(t *testing.T) {
	ts, _ := setupServer(t)
	seedWebsiteAndValidator(t, ts)

	resp, m := doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator/report", "",
		map[string]any{"url": "https://nope.example", "code": 200, "validator": "V1"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d", resp.StatusCode)
	}
	if m["message"] != "Website not found" {
		t.Fatalf("wrong message: %v", m)
	}
}

func TestReport_MalformedPayload400(t *testing.T) {
	ts, _ := setupServer(t)
	seedWebsiteAndValidator(t, ts)

	// missing validator field entirely
	resp, m := doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator/report", "",
		map[string]any{"url": "https://a.example", "code": 200})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d %v", resp.StatusCode, m)
	}
	if m["message"] != "Validation error" {
		t.Fatalf("wrong message: %v", m)
	}
}

func TestWebsiteStatus_NoTicksIsNullLastStatus(t *testing.T) {
	ts, _ := setupServer(t)
	websiteID := seedWebsiteAndValidator(t, ts)

	resp, m := doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/website/status?websiteId="+websiteID, "pub_test", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	ls, present := m["lastStatus"]
	if !present {
		t.Fatalf("lastStatus key missing: %v", m)
	}
	if ls != nil {
		t.Fatalf("want null lastStatus, got %v", ls)
	}
}

func TestWebsiteStatus_LatestTickWins(t *testing.T) {
	ts, _ := setupServer(t)
	websiteID := seedWebsiteAndValidator(t, ts)

	for _, code := range []int{503, 200} {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator/report", "",
			map[string]any{"url": "https://a.example", "code": code, "validator": "V1"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("report code %d failed: %d", code, resp.StatusCode)
		}
	}

	resp, m := doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/website/status?websiteId="+websiteID, "pub_test", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	last, _ := m["lastStatus"].(map[string]any)
	if last == nil || last["status"] != "Good" {
		t.Fatalf("latest report was 200, want Good, got %v", m["lastStatus"])
	}
}

func TestListWebsites_DerivedStatusOnlyAndAuthRequired(t *testing.T) {
	ts, _ := setupServer(t)
	seedWebsiteAndValidator(t, ts)

	// no key -> 401
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/websites?userId=u1", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 without key, got %d", resp.StatusCode)
	}

	doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator/report", "",
		map[string]any{"url": "https://a.example", "code": 200, "validator": "V1"})

	resp, m := doJSON(t, http.MethodGet, ts.URL+"/api/v1/websites?userId=u1", "pub_test", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	websites, _ := m["websites"].([]any)
	if len(websites) != 1 {
		t.Fatalf("want 1 website, got %v", m)
	}
	entry, _ := websites[0].(map[string]any)
	if _, hasTicks := entry["ticks"]; hasTicks {
		t.Fatalf("list endpoint must not ship full history: %v", entry)
	}
	last, _ := entry["lastStatus"].(map[string]any)
	if last == nil || last["status"] != "Good" {
		t.Fatalf("want derived lastStatus Good, got %v", entry)
	}
}

func TestWebsiteTicks_PagedNewestFirst(t *testing.T) {
	ts, _ := setupServer(t)
	websiteID := seedWebsiteAndValidator(t, ts)

	for i := 0; i < 5; i++ {
		code := 200
		if i == 4 {
			code = 500 // newest
		}
		doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator/report", "",
			map[string]any{"url": "https://a.example", "code": code, "validator": "V1"})
	}

	resp, m := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/website/ticks?websiteId=%s&limit=3", ts.URL, websiteID), "pub_test", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	ticks, _ := m["ticks"].([]any)
	if len(ticks) != 3 {
		t.Fatalf("want 3 ticks with limit=3, got %d", len(ticks))
	}
	first, _ := ticks[0].(map[string]any)
	if first["status"] != "Bad" {
		t.Fatalf("newest tick should be first, got %v", first)
	}
}

func TestDeleteWebsite_SoftDeleteHidesEverywhere(t *testing.T) {
	ts, _ := setupServer(t)
	websiteID := seedWebsiteAndValidator(t, ts)

	resp, m := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/website", "adm_test",
		map[string]string{"websiteId": websiteID, "userId": "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d %v", resp.StatusCode, m)
	}

	// gone from active list
	_, m = doJSON(t, http.MethodGet, ts.URL+"/api/v1/websites?userId=u1", "pub_test", nil)
	if websites, _ := m["websites"].([]any); len(websites) != 0 {
		t.Fatalf("disabled website still listed: %v", m)
	}

	// gone from the probe-target feed
	_, m = doJSON(t, http.MethodGet, ts.URL+"/api/v1/targets", "", nil)
	if targets, _ := m["targets"].([]any); len(targets) != 0 {
		t.Fatalf("disabled website still a probe target: %v", m)
	}

	// status read 404s
	resp, _ = doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/website/status?websiteId="+websiteID, "pub_test", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 for disabled website status, got %d", resp.StatusCode)
	}

	// further reports are rejected
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator/report", "",
		map[string]any{"url": "https://a.example", "code": 200, "validator": "V1"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 reporting against disabled website, got %d", resp.StatusCode)
	}

	// but direct history lookup still works
	resp, _ = doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/website/ticks?websiteId="+websiteID, "pub_test", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history should stay reachable by id, got %d", resp.StatusCode)
	}
}

func TestCreateWebsite_ValidationAndDuplicates(t *testing.T) {
	ts, _ := setupServer(t)

	// invalid scheme
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/website", "adm_test",
		map[string]string{"url": "ftp://bad", "userId": "u1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 on invalid URL, got %d", resp.StatusCode)
	}

	// public key cannot create
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/website", "pub_test",
		map[string]string{"url": "https://a.example", "userId": "u1"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403 with public key, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/website", "adm_test",
		map[string]string{"url": "https://a.example", "userId": "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: %d", resp.StatusCode)
	}

	// normalized duplicate -> 409
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/website", "adm_test",
		map[string]string{"url": "https://A.EXAMPLE/", "userId": "u2"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("want 409 on duplicate, got %d", resp.StatusCode)
	}
}

func TestRegisterValidator_DuplicateKey409(t *testing.T) {
	ts, _ := setupServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator", "adm_test",
		map[string]string{"publicKey": "V1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/validator", "adm_test",
		map[string]string{"publicKey": "V1"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("want 409 on duplicate key, got %d", resp.StatusCode)
	}
}
