// Package analysis turns transcripts into structured study material and a
// concept map using an OpenAI-compatible chat completion API.
package analysis
