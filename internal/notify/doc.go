// Package notify implements the durable notification queue. Events enqueue
// rendered messages into SQLite with dedup on template and variables; a
// single drainer delivers them over an ntfy-style push endpoint with bounded
// retry per message.
package notify
