package models

// RecapRequest is the body accepted by both completion endpoints.
type RecapRequest struct {
	YoutubeLink string `json:"youtubeLink"`
}

// Completion is a parsed model reply. It stays an open map so keys the model
// adds on its own reach the client untouched.
type Completion map[string]any

// Keys merged into a Completion after parsing.
const (
	KeyThumbnailURL = "thumbnailUrl"
	KeyImages       = "images"
)

// ErrorResponse is the body returned for every failed completion request.
type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp string       `json:"timestamp"`
	Version   string       `json:"version"`
	Uptime    string       `json:"uptime"`
	Debug     *HealthDebug `json:"debug,omitempty"`
}

// HealthDebug is only reported when the server runs in debug mode.
type HealthDebug struct {
	Goroutines int    `json:"goroutines"`
	Allocated  uint64 `json:"allocated"`
	Total      uint64 `json:"total"`
	System     uint64 `json:"system"`
	GCCycles   uint32 `json:"gc_cycles"`
}
