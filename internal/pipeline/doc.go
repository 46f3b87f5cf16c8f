// Package pipeline orchestrates video processing jobs: metadata extraction,
// audio download, transcription, content analysis, and knowledge graph
// generation, with durable state transitions, a fingerprint result cache,
// and status snapshots for cheap polling.
package pipeline
