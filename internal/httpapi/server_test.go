package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mvidale/fablepress/internal/config"
	"github.com/mvidale/fablepress/internal/genai"
	"github.com/mvidale/fablepress/internal/guardrail"
	"github.com/mvidale/fablepress/internal/history"
	"github.com/mvidale/fablepress/internal/observability"
	"github.com/mvidale/fablepress/internal/orchestrator"
	"github.com/mvidale/fablepress/internal/session"
)

var (
	metricsOnce sync.Once
	testMetrics *observability.Metrics
)

func sharedMetrics() *observability.Metrics {
	metricsOnce.Do(func() {
		testMetrics = observability.NewMetrics("fablepress_httpapi_test")
	})
	return testMetrics
}

type passthroughEncoder struct{}

func (passthroughEncoder) Encode(_ context.Context, wavData []byte, outputPath string) error {
	return os.WriteFile(outputPath, wavData, 0o644)
}

func newTestServer(t *testing.T) (*httptest.Server, *orchestrator.Orchestrator) {
	t.Helper()
	cfg := config.Config{
		WorkdirRoot:  t.TempDir(),
		HistoryLimit: 50,
	}
	ocfg := orchestrator.Config{
		GeneralTokenCeiling: 8000,
		PDFTokenCeiling:     4000,
		SceneTokens:         250,
		WorkdirRoot:         cfg.WorkdirRoot,
		Retry: genai.RetryPolicy{
			Attempts: 1, Base: time.Millisecond, Cap: time.Millisecond,
			Sleep: func(time.Duration) {},
		},
	}
	orch := orchestrator.New(ocfg, session.NewStore(time.Minute), genai.NewMockProvider(),
		guardrail.NewEstimator("gpt-4o"), passthroughEncoder{}, sharedMetrics(),
		history.NewInMemoryStore())
	srv := New(cfg, orch, sharedMetrics())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, orch
}

func storyForm(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func postSession(t *testing.T, ts *httptest.Server) sessionResponse {
	t.Helper()
	body, contentType := storyForm(t, map[string]string{
		"story_text":     "A fox set out. The hill was quiet. The sun rose late.",
		"character_desc": "a small red fox",
		"style_desc":     "watercolor",
	})
	res, err := http.Post(ts.URL+"/v1/storybook/session", contentType, body)
	if err != nil {
		t.Fatalf("start session request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(res.Body)
		t.Fatalf("start status = %d, body %s", res.StatusCode, raw)
	}
	var created sessionResponse
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	if created.SessionID == "" || created.State == nil {
		t.Fatalf("incomplete session response: %+v", created)
	}
	return created
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	var out map[string]any

	req := httptest.NewRequest(http.MethodPut, "/v1/storybook/session/x/details", nil)
	if err := decodeJSON(req, &out); !errors.Is(err, errEmptyBody) {
		t.Fatalf("decodeJSON(no body) error = %v, want errEmptyBody", err)
	}

	req = httptest.NewRequest(http.MethodPut, "/v1/storybook/session/x/details", strings.NewReader(""))
	if err := decodeJSON(req, &out); !errors.Is(err, errEmptyBody) {
		t.Fatalf("decodeJSON(empty body) error = %v, want errEmptyBody", err)
	}

	req = httptest.NewRequest(http.MethodPut, "/v1/storybook/session/x/details", strings.NewReader(`{"title":`))
	if err := decodeJSON(req, &out); !errors.Is(err, errEmptyBody) {
		t.Fatalf("decodeJSON(truncated body) error = %v, want errEmptyBody", err)
	}

	req = httptest.NewRequest(http.MethodPut, "/v1/storybook/session/x/details", strings.NewReader(`{"title": }`))
	if err := decodeJSON(req, &out); err == nil || errors.Is(err, errEmptyBody) {
		t.Fatalf("decodeJSON(malformed body) error = %v, want a decode error", err)
	}
}

func TestHealthAndReady(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, res.StatusCode)
		}
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t)
	created := postSession(t, ts)
	base := ts.URL + "/v1/storybook/session/" + created.SessionID

	// Read back.
	res, err := http.Get(base)
	if err != nil {
		t.Fatalf("GET session error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET session status = %d", res.StatusCode)
	}

	// Edit scene 0.
	req, _ := http.NewRequest(http.MethodPut, base+"/scene/0",
		strings.NewReader(`{"text":"rewritten"}`))
	req.Header.Set("Content-Type", "application/json")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT scene error = %v", err)
	}
	var updated sessionResponse
	if err := json.NewDecoder(res.Body).Decode(&updated); err != nil {
		t.Fatalf("decode update response: %v", err)
	}
	res.Body.Close()
	if updated.State.Scenes[0].Text != "rewritten" {
		t.Fatalf("scene 0 text = %q", updated.State.Scenes[0].Text)
	}

	// Scene image is servable.
	res, err = http.Get(base + "/image/0")
	if err != nil {
		t.Fatalf("GET image error = %v", err)
	}
	img, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || len(img) == 0 {
		t.Fatalf("GET image status = %d, %d bytes", res.StatusCode, len(img))
	}

	// Preview leaves the session alive.
	res, err = http.Get(base + "/preview")
	if err != nil {
		t.Fatalf("GET preview error = %v", err)
	}
	preview, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || !bytes.HasPrefix(preview, []byte("%PDF")) {
		t.Fatalf("GET preview status = %d", res.StatusCode)
	}

	// Download finalizes: PDF body, then the session is gone.
	res, err = http.Get(base + "/download")
	if err != nil {
		t.Fatalf("GET download error = %v", err)
	}
	final, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || !bytes.HasPrefix(final, []byte("%PDF")) {
		t.Fatalf("GET download status = %d", res.StatusCode)
	}

	res, err = http.Get(base)
	if err != nil {
		t.Fatalf("GET after download error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("GET finalized session status = %d, want 404", res.StatusCode)
	}
}

func TestStartSessionRequiresOneSource(t *testing.T) {
	ts, _ := newTestServer(t)
	body, contentType := storyForm(t, map[string]string{
		"character_desc": "a fox",
		"style_desc":     "ink",
	})
	res, err := http.Post(ts.URL+"/v1/storybook/session", contentType, body)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
	var parsed errorResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if parsed.Code != "invalid_request" {
		t.Fatalf("code = %q", parsed.Code)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	ts, _ := newTestServer(t)
	res, err := http.Get(ts.URL + "/v1/storybook/session/no-such-id")
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.StatusCode)
	}
}

func TestSceneIndexValidation(t *testing.T) {
	ts, _ := newTestServer(t)
	created := postSession(t, ts)
	base := ts.URL + "/v1/storybook/session/" + created.SessionID

	req, _ := http.NewRequest(http.MethodPut, base+"/scene/99",
		strings.NewReader(`{"text":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range scene status = %d, want 400", res.StatusCode)
	}
}

func TestCreateStorybookStatelessOverHTTP(t *testing.T) {
	ts, orch := newTestServer(t)
	body, contentType := storyForm(t, map[string]string{
		"story_text":     "One fox. One hill.",
		"character_desc": "a fox",
		"style_desc":     "ink",
	})
	res, err := http.Post(ts.URL+"/v1/storybook/create", contentType, body)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	pdf, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("status = %d, %d bytes", res.StatusCode, len(pdf))
	}
	if orch.Sessions().Len() != 0 {
		t.Fatalf("stateless create registered a session")
	}
}

func TestConvertAudiobookMissingVoice(t *testing.T) {
	ts, _ := newTestServer(t)
	body, contentType := storyForm(t, map[string]string{})
	res, err := http.Post(ts.URL+"/v1/audiobook/convert", contentType, body)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestListVoices(t *testing.T) {
	ts, _ := newTestServer(t)
	res, err := http.Get(ts.URL + "/v1/voices")
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer res.Body.Close()
	var parsed listVoicesResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode voices: %v", err)
	}
	if len(parsed.Voices) != 4 || parsed.DefaultVoice == "" {
		t.Fatalf("voices = %+v", parsed)
	}
}

func TestRecentJobsAfterConversion(t *testing.T) {
	ts, _ := newTestServer(t)
	created := postSession(t, ts)
	// Finalize so a job record lands in history.
	res, err := http.Get(ts.URL + "/v1/storybook/session/" + created.SessionID + "/download")
	if err != nil {
		t.Fatalf("download error = %v", err)
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()

	res, err = http.Get(ts.URL + "/v1/jobs/recent")
	if err != nil {
		t.Fatalf("jobs request error = %v", err)
	}
	defer res.Body.Close()
	var parsed recentJobsResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(parsed.Jobs) == 0 {
		t.Fatalf("no job records after finalize")
	}
}
