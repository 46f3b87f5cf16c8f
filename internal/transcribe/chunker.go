package transcribe

import (
	"context"
	"strings"
)

// TranscribeChunks runs the client over each audio chunk in order and merges
// the results into one transcript with segment timestamps re-offset to the
// full track's timeline.
func (c *Client) TranscribeChunks(ctx context.Context, chunks []string, language string, estimatedSeconds float64) (*Transcript, error) {
	if len(chunks) == 1 {
		return c.Transcribe(ctx, Request{AudioPath: chunks[0], Language: language}, estimatedSeconds)
	}

	perChunkEstimate := estimatedSeconds / float64(len(chunks))
	merged := &Transcript{Language: language}
	var (
		texts  []string
		offset float64
	)
	for _, chunk := range chunks {
		part, err := c.Transcribe(ctx, Request{AudioPath: chunk, Language: language}, perChunkEstimate)
		if err != nil {
			return nil, err
		}
		texts = append(texts, strings.TrimSpace(part.Text))
		for _, segment := range part.Segments {
			segment.Start += offset
			segment.End += offset
			merged.Segments = append(merged.Segments, segment)
		}
		offset += part.DurationSeconds
		merged.DurationSeconds += part.DurationSeconds
		merged.Provider = part.Provider
		if merged.Language == "" {
			merged.Language = part.Language
		}
	}
	merged.Text = strings.Join(texts, " ")
	return merged, nil
}
