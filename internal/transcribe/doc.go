// Package transcribe turns downloaded audio into timed transcripts. A
// fallback client fronts two hosted providers: transient failures retry in
// place, rate limits either wait out the advertised delay or divert to the
// secondary provider, and per-provider quotas gate admission up front.
package transcribe
