// Package prompt builds the completion prompts for the tweet and analysis
// endpoints. The two builders are independent; changing one must not change
// the other.
package prompt

import (
	"fmt"
	"strings"

	"github.com/nijaru/yt-recap/models"
)

const (
	TweetSystem    = "You are a social media expert who creates engaging tweets about video content."
	AnalysisSystem = "You are a helpful assistant that generates structured JSON responses about video content."
)

const tweetTemplate = `
Based on this transcript of a YouTube video:
%s

Generate a compelling tweet (maximum 280 characters) that summarizes the main point or most interesting aspect of this video.
The tweet should be engaging and make people want to watch the video.

Return a JSON response with this structure:
{
  "tweet": "the generated tweet text"
}
`

const analysisTemplate = `
Transcript: %s

Detailed segments with timestamps:
%s

Generate a JSON response with the following structure:
{
  "summary": "brief summary of the content",
  "keyPoints": ["array", "of", "key", "points"],
  "timestamps": {
    "important_moment": "timestamp"
  }
}
Make sure to include all timestamps in the "timestamps" object. Keep in mind that the timestamps are in milliseconds. Return only the top 3 moments from the video.
`

// Tweet embeds the transcript verbatim in the tweet prompt.
func Tweet(transcript string) string {
	return fmt.Sprintf(tweetTemplate, transcript)
}

// Analysis embeds the transcript and one line per segment, in the order
// given.
func Analysis(transcript string, segments []models.Segment) string {
	return fmt.Sprintf(analysisTemplate, transcript, SegmentLines(segments))
}

// SegmentLines renders segments as "[<start>s]: <text>" lines. The start is
// printed as stored, in milliseconds, despite the "s" suffix.
func SegmentLines(segments []models.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("[%ss]: %s", models.FormatStart(seg.Start), seg.Text))
	}
	return strings.Join(lines, "\n")
}
