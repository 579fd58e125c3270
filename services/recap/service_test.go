package recap

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/nijaru/yt-recap/completion"
	"github.com/nijaru/yt-recap/errors"
	"github.com/nijaru/yt-recap/logger"
	"github.com/nijaru/yt-recap/models"
	"github.com/nijaru/yt-recap/prompt"
	"github.com/nijaru/yt-recap/repository"
	"github.com/nijaru/yt-recap/storage"
)

type fakeGateway struct {
	videos map[string]*models.VideoRecord
}

func (g *fakeGateway) FindVideoID(ctx context.Context, link string) (string, error) {
	for _, v := range g.videos {
		if v.Link == link {
			return v.ID, nil
		}
	}
	return "", repository.ErrNotFound
}

func (g *fakeGateway) FindTranscript(ctx context.Context, videoID string) (string, error) {
	v, ok := g.videos[videoID]
	if !ok || v.Transcript == "" {
		return "", repository.ErrNotFound
	}
	return v.Transcript, nil
}

func (g *fakeGateway) FindSegments(ctx context.Context, videoID string) ([]models.Segment, error) {
	v, ok := g.videos[videoID]
	if !ok {
		return nil, nil
	}
	out := make([]models.Segment, len(v.Segments))
	copy(out, v.Segments)
	return out, nil
}

type fakeCompletion struct {
	reply    string
	err      error
	requests []completion.Request
}

func (c *fakeCompletion) Complete(ctx context.Context, req completion.Request) (string, error) {
	c.requests = append(c.requests, req)
	return c.reply, c.err
}

type prefixResolver struct {
	prefix string
	fail   map[string]bool
}

func (r prefixResolver) Resolve(ctx context.Context, ref string) (string, error) {
	if r.fail[ref] {
		return "", fmt.Errorf("presign failed")
	}
	return r.prefix + ref, nil
}

func newTestGateway() *fakeGateway {
	return &fakeGateway{videos: map[string]*models.VideoRecord{
		"v1": {
			ID:         "v1",
			Link:       "https://youtu.be/abc",
			Transcript: "Hello world",
			Segments:   []models.Segment{{Start: 0, Text: "Hi", StorageURL: "img0"}},
		},
		"v2": {
			ID:         "v2",
			Link:       "https://youtu.be/unordered",
			Transcript: "Three parts",
			Segments: []models.Segment{
				{Start: 5000, Text: "third", StorageURL: "img5"},
				{Start: 1000, Text: "first", StorageURL: "img1"},
				{Start: 3000, Text: "second", StorageURL: "img3"},
			},
		},
		"v3": {
			ID:         "v3",
			Link:       "https://youtu.be/nosegments",
			Transcript: "Just words",
		},
		"v4": {
			ID:   "v4",
			Link: "https://youtu.be/notranscript",
		},
		"v5": {
			ID:         "v5",
			Link:       "youtu.be/fractional",
			Transcript: "Half seconds",
			Segments: []models.Segment{
				{Start: 2000, Text: "later", StorageURL: "img2000"},
				{Start: 1500.5, Text: "half", StorageURL: "img1500"},
			},
		},
	}}
}

func newTestService(llm completion.Client, images storage.Resolver) Service {
	return NewService(newTestGateway(), llm, images, Config{
		TweetModel:    "tweet-model",
		AnalysisModel: "analysis-model",
	}, logger.Discard())
}

func TestGenerateTweet(t *testing.T) {
	llm := &fakeCompletion{reply: `{"tweet":"Watch this!"}`}
	svc := newTestService(llm, nil)

	result, err := svc.GenerateTweet(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result["tweet"] != "Watch this!" {
		t.Errorf("expected tweet text, got %v", result["tweet"])
	}
	if result[models.KeyThumbnailURL] != "img0" {
		t.Errorf("expected thumbnailUrl img0, got %v", result[models.KeyThumbnailURL])
	}
	if len(result) != 2 {
		t.Errorf("expected exactly tweet and thumbnailUrl, got %v", result)
	}

	if len(llm.requests) != 1 {
		t.Fatalf("expected one completion call, got %d", len(llm.requests))
	}
	req := llm.requests[0]
	if req.Model != "tweet-model" || req.System != prompt.TweetSystem {
		t.Errorf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.Prompt, "Hello world") {
		t.Errorf("expected transcript in prompt, got %q", req.Prompt)
	}
}

func TestAnalyze(t *testing.T) {
	llm := &fakeCompletion{reply: `{"summary":"s","keyPoints":["a"],"timestamps":{"start":1000},"images":"model value","mood":"upbeat"}`}
	svc := newTestService(llm, nil)

	result, err := svc.Analyze(context.Background(), "https://youtu.be/unordered")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	images, ok := result[models.KeyImages].(map[string]string)
	if !ok {
		t.Fatalf("expected images map, got %T", result[models.KeyImages])
	}
	want := map[string]string{"1000": "img1", "3000": "img3", "5000": "img5"}
	if len(images) != len(want) {
		t.Errorf("expected %d images, got %d", len(want), len(images))
	}
	for k, v := range want {
		if images[k] != v {
			t.Errorf("images[%s]: expected %s, got %s", k, v, images[k])
		}
	}
	if result["summary"] != "s" || result["mood"] != "upbeat" {
		t.Errorf("expected model keys to pass through, got %v", result)
	}

	req := llm.requests[0]
	if req.Model != "analysis-model" || req.System != prompt.AnalysisSystem {
		t.Errorf("unexpected request: %+v", req)
	}
	first := strings.Index(req.Prompt, "[1000s]: first")
	second := strings.Index(req.Prompt, "[3000s]: second")
	third := strings.Index(req.Prompt, "[5000s]: third")
	if first < 0 || second < 0 || third < 0 || !(first < second && second < third) {
		t.Errorf("expected segments in ascending order in prompt, got %q", req.Prompt)
	}
}

func TestAnalyzeFractionalStart(t *testing.T) {
	llm := &fakeCompletion{reply: `{"timestamps":{"half":1500.5}}`}
	svc := newTestService(llm, nil)

	result, err := svc.Analyze(context.Background(), "youtu.be/fractional")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	images := result[models.KeyImages].(map[string]string)
	if images["1500.5"] != "img1500" || images["2000"] != "img2000" || len(images) != 2 {
		t.Errorf("expected images keyed by exact start, got %v", images)
	}
	if !strings.Contains(llm.requests[0].Prompt, "[1500.5s]: half\n[2000s]: later") {
		t.Errorf("expected fractional start in prompt, got %q", llm.requests[0].Prompt)
	}
}

func TestNoSegments(t *testing.T) {
	llm := &fakeCompletion{reply: `{"tweet":"t","thumbnailUrl":"from-model"}`}
	svc := newTestService(llm, nil)

	tweet, err := svc.GenerateTweet(context.Background(), "https://youtu.be/nosegments")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tweet[models.KeyThumbnailURL]; ok {
		t.Errorf("expected no thumbnailUrl, got %v", tweet[models.KeyThumbnailURL])
	}

	analysis, err := svc.Analyze(context.Background(), "https://youtu.be/nosegments")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	images, ok := analysis[models.KeyImages].(map[string]string)
	if !ok || len(images) != 0 {
		t.Errorf("expected empty images map, got %v", analysis[models.KeyImages])
	}
}

func TestLookupFailures(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		wantMsg string
	}{
		{"unknown link", "https://youtu.be/unknown", "Video error"},
		{"unknown scheme-less link", "youtu.be/unknown", "Video error"},
		{"free text link", "not a link", "Video error"},
		{"empty link", "", "Video error"},
		{"missing transcript", "https://youtu.be/notranscript", "Transcript error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeCompletion{reply: `{}`}
			svc := newTestService(llm, nil)

			calls := map[string]func(context.Context, string) (models.Completion, error){
				"tweet":    svc.GenerateTweet,
				"analysis": svc.Analyze,
			}
			for name, call := range calls {
				_, err := call(context.Background(), tt.link)
				if err == nil {
					t.Fatalf("%s: expected error", name)
				}
				if !strings.HasPrefix(err.Error(), tt.wantMsg) {
					t.Errorf("%s: expected message starting with %q, got %q", name, tt.wantMsg, err.Error())
				}
				if errors.KindOf(err) != errors.KindLookupNotFound {
					t.Errorf("%s: expected lookup kind, got %s", name, errors.KindOf(err))
				}
			}
			if len(llm.requests) != 0 {
				t.Errorf("expected no completion calls, got %d", len(llm.requests))
			}
		})
	}
}

func TestUnparsableCompletion(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"empty", ""},
		{"not json", "Sure! Here is your tweet"},
		{"array", `["a","b"]`},
		{"null", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeCompletion{reply: tt.reply}, nil)

			tweet, err := svc.GenerateTweet(context.Background(), "https://youtu.be/abc")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(tweet) != 1 || tweet[models.KeyThumbnailURL] != "img0" {
				t.Errorf("expected only thumbnailUrl, got %v", tweet)
			}

			analysis, err := svc.Analyze(context.Background(), "https://youtu.be/abc")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(analysis) != 1 {
				t.Errorf("expected only images, got %v", analysis)
			}
		})
	}
}

func TestUpstreamFailure(t *testing.T) {
	svc := newTestService(&fakeCompletion{err: fmt.Errorf("status code: 429")}, nil)

	_, err := svc.Analyze(context.Background(), "https://youtu.be/abc")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.KindOf(err) != errors.KindUpstreamService {
		t.Errorf("expected upstream kind, got %s", errors.KindOf(err))
	}
	if !strings.Contains(err.Error(), "status code: 429") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestImageResolution(t *testing.T) {
	resolver := prefixResolver{
		prefix: "https://cdn.example.com/",
		fail:   map[string]bool{"img3": true},
	}
	svc := newTestService(&fakeCompletion{reply: `{}`}, resolver)

	result, err := svc.Analyze(context.Background(), "https://youtu.be/unordered")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	images := result[models.KeyImages].(map[string]string)
	if images["1000"] != "https://cdn.example.com/img1" {
		t.Errorf("expected resolved link, got %s", images["1000"])
	}
	if images["3000"] != "img3" {
		t.Errorf("expected raw reference on failure, got %s", images["3000"])
	}
}
