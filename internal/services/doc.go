// Package services defines the failure taxonomy shared by pipeline components
// and the context annotations used to correlate logs with jobs. Sentinel
// errors classify failures (quota, rate limit, provider outage, bad input) so
// the orchestrator and the transcription client can route them without string
// matching.
package services
