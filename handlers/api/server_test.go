package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/nijaru/yt-recap/completion"
	"github.com/nijaru/yt-recap/config"
	"github.com/nijaru/yt-recap/logger"
	"github.com/nijaru/yt-recap/models"
	"github.com/nijaru/yt-recap/repository/sqlite"
	"github.com/nijaru/yt-recap/services/recap"
)

type fakeCompletion struct {
	reply    string
	err      error
	requests []completion.Request
}

func (c *fakeCompletion) Complete(ctx context.Context, req completion.Request) (string, error) {
	c.requests = append(c.requests, req)
	return c.reply, c.err
}

func testConfig() *config.Config {
	return &config.Config{
		ServerPort: "0",
		Version:    "test",
		CORS: config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		},
		Middleware: config.MiddlewareConfig{
			EnableRecover:   true,
			EnableRequestID: true,
			EnableLogger:    true,
			EnableCORS:      true,
			EnableSession:   true,
		},
		Datastore: config.DatastoreConfig{
			Supabase: config.SupabaseConfig{AuthCookie: "sb-access-token"},
		},
	}
}

// newTestServer wires the real recap service over a temporary sqlite
// database holding the example video records.
func newTestServer(t *testing.T, llm completion.Client) http.Handler {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	records := []*models.VideoRecord{
		{
			ID:         "v1",
			Link:       "https://youtu.be/abc",
			Transcript: "Hello world",
			Segments:   []models.Segment{{Start: 0, Text: "Hi", StorageURL: "img0"}},
		},
		{
			ID:         "v2",
			Link:       "https://youtu.be/unordered",
			Transcript: "Three parts",
			Segments: []models.Segment{
				{Start: 5000, Text: "third", StorageURL: "img5"},
				{Start: 1000, Text: "first", StorageURL: "img1"},
				{Start: 3000, Text: "second", StorageURL: "img3"},
			},
		},
		{ID: "v3", Link: "https://youtu.be/silent", Transcript: "No pictures"},
		{ID: "v4", Link: "https://youtu.be/notranscript"},
		{
			ID:         "v5",
			Link:       "youtu.be/plain",
			Transcript: "Stored without a scheme",
			Segments:   []models.Segment{{Start: 1500.5, Text: "half", StorageURL: "imgHalf"}},
		},
	}
	for _, rec := range records {
		if err := store.SaveVideo(context.Background(), rec); err != nil {
			t.Fatalf("Failed to seed %s: %v", rec.ID, err)
		}
	}

	log := logger.Discard()
	svc := recap.NewService(store, llm, nil, recap.Config{
		TweetModel:    "tweet-model",
		AnalysisModel: "analysis-model",
	}, log)

	static := fstest.MapFS{
		"index.html": {Data: []byte("<h2>Video Analysis</h2>")},
		"app.js":     {Data: []byte("// ui")},
	}

	return NewServer(testConfig(), WithLogger(log), WithServices(svc), WithStatic(static)).Handler()
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("Response is not a JSON object: %v (%s)", err, rr.Body.String())
	}
	return rr, out
}

func TestGenerateTweet(t *testing.T) {
	llm := &fakeCompletion{reply: `{"tweet":"Hello from the video"}`}
	h := newTestServer(t, llm)

	rr, out := post(t, h, "/api/generate-tweet", `{"youtubeLink":"https://youtu.be/abc"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if out["tweet"] != "Hello from the video" || out["thumbnailUrl"] != "img0" {
		t.Errorf("unexpected body: %v", out)
	}
	if len(out) != 2 {
		t.Errorf("expected exactly tweet and thumbnailUrl, got %v", out)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("unexpected content type %q", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	if len(llm.requests) != 1 {
		t.Fatalf("expected one completion request, got %d", len(llm.requests))
	}
	if req := llm.requests[0]; req.Model != "tweet-model" || !strings.Contains(req.Prompt, "Hello world") {
		t.Errorf("unexpected completion request: %+v", req)
	}
}

func TestGenerateAnalysis(t *testing.T) {
	llm := &fakeCompletion{reply: `{"summary":"S","keyPoints":["a"],"timestamps":{"intro":1000},"images":{"x":"y"}}`}
	h := newTestServer(t, llm)

	rr, out := post(t, h, "/api/generate", `{"youtubeLink":"https://youtu.be/unordered"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if out["summary"] != "S" {
		t.Errorf("expected summary to pass through, got %v", out["summary"])
	}

	images, ok := out["images"].(map[string]any)
	if !ok {
		t.Fatalf("expected images object, got %T", out["images"])
	}
	want := map[string]string{"1000": "img1", "3000": "img3", "5000": "img5"}
	if len(images) != len(want) {
		t.Errorf("expected one image per segment, got %v", images)
	}
	for k, v := range want {
		if images[k] != v {
			t.Errorf("images[%s] = %v, want %s", k, images[k], v)
		}
	}

	p := llm.requests[0].Prompt
	first, second, third := strings.Index(p, "[1000s]: first"), strings.Index(p, "[3000s]: second"), strings.Index(p, "[5000s]: third")
	if first < 0 || !(first < second && second < third) {
		t.Errorf("expected segments in start order in prompt:\n%s", p)
	}
}

func TestNoSegments(t *testing.T) {
	llm := &fakeCompletion{reply: `{"tweet":"t","thumbnailUrl":"model-made","summary":"s"}`}
	h := newTestServer(t, llm)

	_, tweet := post(t, h, "/api/generate-tweet", `{"youtubeLink":"https://youtu.be/silent"}`)
	if _, ok := tweet["thumbnailUrl"]; ok {
		t.Errorf("expected no thumbnailUrl without segments, got %v", tweet)
	}

	_, analysis := post(t, h, "/api/generate", `{"youtubeLink":"https://youtu.be/silent"}`)
	images, ok := analysis["images"].(map[string]any)
	if !ok || len(images) != 0 {
		t.Errorf("expected empty images object, got %v", analysis["images"])
	}
}

func TestUnparsableCompletion(t *testing.T) {
	h := newTestServer(t, &fakeCompletion{reply: "not json"})

	rr, out := post(t, h, "/api/generate-tweet", `{"youtubeLink":"https://youtu.be/abc"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(out) != 1 || out["thumbnailUrl"] != "img0" {
		t.Errorf("expected only thumbnailUrl, got %v", out)
	}
}

func TestRecapErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		llmErr  error
		wantMsg string
	}{
		{"unknown link tweet", "/api/generate-tweet", `{"youtubeLink":"https://youtu.be/missing"}`, nil, "Video error"},
		{"unknown link analysis", "/api/generate", `{"youtubeLink":"https://youtu.be/missing"}`, nil, "Video error"},
		{"no transcript", "/api/generate", `{"youtubeLink":"https://youtu.be/notranscript"}`, nil, "Transcript error"},
		{"malformed body", "/api/generate", `{"youtubeLink":`, nil, "Invalid JSON format"},
		{"scheme-less unknown link tweet", "/api/generate-tweet", `{"youtubeLink":"youtu.be/abc"}`, nil, "Video error"},
		{"scheme-less unknown link analysis", "/api/generate", `{"youtubeLink":"youtu.be/abc"}`, nil, "Video error"},
		{"free text link", "/api/generate", `{"youtubeLink":"not a link"}`, nil, "Video error"},
		{"empty link tweet", "/api/generate-tweet", `{"youtubeLink":""}`, nil, "Video error"},
		{"empty link analysis", "/api/generate", `{"youtubeLink":""}`, nil, "Video error"},
		{"missing link tweet", "/api/generate-tweet", `{}`, nil, "Video error"},
		{"missing link analysis", "/api/generate", `{}`, nil, "Video error"},
		{"upstream failure", "/api/generate", `{"youtubeLink":"https://youtu.be/abc"}`, context.DeadlineExceeded, "Completion error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeCompletion{reply: `{}`, err: tt.llmErr})

			rr, out := post(t, h, tt.path, tt.body)

			if rr.Code != http.StatusInternalServerError {
				t.Errorf("expected 500, got %d", rr.Code)
			}
			msg, _ := out["error"].(string)
			if !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tt.wantMsg, msg)
			}
		})
	}
}

func TestSchemeLessStoredLink(t *testing.T) {
	llm := &fakeCompletion{reply: `{"summary":"ok","timestamps":{"half":1500.5}}`}
	h := newTestServer(t, llm)

	rr, out := post(t, h, "/api/generate", `{"youtubeLink":"youtu.be/plain"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", rr.Code, out)
	}

	images, ok := out["images"].(map[string]any)
	if !ok || images["1500.5"] != "imgHalf" {
		t.Errorf("expected image keyed by fractional start, got %v", out["images"])
	}
	if !strings.Contains(llm.requests[0].Prompt, "[1500.5s]: half") {
		t.Errorf("expected fractional start in prompt:\n%s", llm.requests[0].Prompt)
	}
}

func TestWrongContentType(t *testing.T) {
	h := newTestServer(t, &fakeCompletion{reply: `{}`})

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader("youtubeLink=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, &fakeCompletion{reply: `{}`})

	for _, path := range []string{"/api/generate", "/api/generate-tweet"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: expected 405, got %d", path, rr.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &fakeCompletion{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var out models.HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Status != "ok" || out.Version != "test" || out.Uptime == "" || out.Timestamp == "" {
		t.Errorf("unexpected health response: %+v", out)
	}
	if out.Debug != nil {
		t.Error("expected no debug section outside debug mode")
	}
}

func TestStatic(t *testing.T) {
	h := newTestServer(t, &fakeCompletion{})

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/", http.StatusOK, "Video Analysis"},
		{"/static/app.js", http.StatusOK, "// ui"},
		{"/static/missing.js", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rr.Code != tt.wantCode {
			t.Errorf("GET %s: expected %d, got %d", tt.path, tt.wantCode, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), tt.wantBody) {
			t.Errorf("GET %s: unexpected body %q", tt.path, rr.Body.String())
		}
	}
}

func TestRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Middleware.EnableRateLimit = true
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, BurstSize: 1}

	h := NewServer(cfg, WithLogger(logger.Discard())).Handler()

	codes := make([]int, 2)
	for i := range codes {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes[i] = rr.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected 200 then 429, got %v", codes)
	}
}
