// Package resultcache stores completed processing results keyed by a
// content fingerprint so repeated submissions of the same video reuse the
// prior result instead of rerunning the pipeline. Entries carry access
// counters and an audit log of create and reuse events.
package resultcache
