package models

import "strconv"

// Segment is one time-stamped fragment of a stored transcript. Start is an
// offset in milliseconds from the beginning of the video and may be
// fractional.
type Segment struct {
	Start      float64 `json:"start"`
	Text       string  `json:"text"`
	StorageURL string  `json:"storage_url"`
}

// VideoRecord is everything the datastore knows about a video that the
// completion endpoints need.
type VideoRecord struct {
	ID         string    `json:"id"`
	Link       string    `json:"youtube_link"`
	Transcript string    `json:"full_text"`
	Segments   []Segment `json:"segments"`
}

// FirstSegment returns the earliest segment, if any.
func (v *VideoRecord) FirstSegment() (Segment, bool) {
	if len(v.Segments) == 0 {
		return Segment{}, false
	}
	return v.Segments[0], true
}

// FormatStart renders a segment start in its shortest decimal form, without
// an exponent: 1000 as "1000", 1500.5 as "1500.5".
func FormatStart(start float64) string {
	return strconv.FormatFloat(start, 'f', -1, 64)
}
