package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nijaru/yt-recap/config"
	"github.com/nijaru/yt-recap/models"
	"github.com/nijaru/yt-recap/repository"
	"github.com/nijaru/yt-recap/session"
	"github.com/pkg/errors"
)

const (
	restPath         = "/rest/v1/"
	singleObjectType = "application/vnd.pgrst.object+json"
	maxErrorBody     = 64 << 10
)

// APIError is an error reported by PostgREST. Error returns the server's
// message unchanged.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// ServerMessage returns the message PostgREST put in the response body.
func (e *APIError) ServerMessage() string {
	return e.Message
}

// Is maps single-object failures onto the repository sentinels.
func (e *APIError) Is(target error) bool {
	if e.Status != http.StatusNotAcceptable {
		return false
	}
	zeroRows := strings.Contains(e.Details, "0 rows")
	switch target {
	case repository.ErrNotFound:
		return zeroRows
	case repository.ErrAmbiguous:
		return !zeroRows
	}
	return false
}

// Client reads from a Supabase project through its REST interface.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

func New(cfg config.SupabaseConfig, httpClient *http.Client) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, errors.New("missing Supabase environment variables")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, errors.Wrap(err, "invalid Supabase URL")
	}

	// A zero Timeout leaves the client bounded only by the request context.
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/") + restPath,
		anonKey:    cfg.AnonKey,
		httpClient: httpClient,
	}, nil
}

func (c *Client) FindVideoID(ctx context.Context, link string) (string, error) {
	var row struct {
		ID json.RawMessage `json:"id"`
	}

	q := url.Values{}
	q.Set("select", "id")
	q.Set("youtube_link", "eq."+link)

	if err := c.get(ctx, "youtube_table", q, true, &row); err != nil {
		return "", err
	}

	return rawScalar(row.ID), nil
}

func (c *Client) FindTranscript(ctx context.Context, videoID string) (string, error) {
	var row struct {
		FullText *string `json:"full_text"`
	}

	q := url.Values{}
	q.Set("select", "full_text")
	q.Set("youtube_id", "eq."+videoID)

	if err := c.get(ctx, "transcripts", q, true, &row); err != nil {
		return "", err
	}
	if row.FullText == nil {
		return "", nil
	}

	return *row.FullText, nil
}

func (c *Client) FindSegments(ctx context.Context, videoID string) ([]models.Segment, error) {
	var rows []struct {
		Start      json.Number `json:"start"`
		Text       *string     `json:"text"`
		StorageURL *string     `json:"storage_url"`
	}

	q := url.Values{}
	q.Set("select", "start,text,storage_url")
	q.Set("youtube_id", "eq."+videoID)
	q.Set("order", "start.asc")

	if err := c.get(ctx, "segments", q, false, &rows); err != nil {
		return nil, err
	}

	segments := make([]models.Segment, 0, len(rows))
	for _, row := range rows {
		start, err := parseStart(row.Start)
		if err != nil {
			return nil, errors.Wrapf(err, "segment start %q", row.Start)
		}
		segments = append(segments, models.Segment{
			Start:      start,
			Text:       deref(row.Text),
			StorageURL: deref(row.StorageURL),
		})
	}

	return segments, nil
}

func (c *Client) get(ctx context.Context, table string, query url.Values, single bool, out any) error {
	endpoint := c.baseURL + table + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}

	token := c.anonKey
	if t, ok := session.AccessToken(ctx); ok {
		token = t
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	if single {
		req.Header.Set("Accept", singleObjectType)
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request %s", table)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", table)
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr.Message = fmt.Sprintf("%s: %s", http.StatusText(resp.StatusCode), strings.TrimSpace(string(body)))
	}

	return apiErr
}

// rawScalar renders a JSON string or number as plain text.
func rawScalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func parseStart(n json.Number) (float64, error) {
	return strconv.ParseFloat(n.String(), 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
