// Package extraction wraps the external yt-dlp and ffmpeg binaries used to
// fetch video metadata, download audio tracks, and split long audio into
// chunks for transcription.
package extraction
