// Command lectern is the operator CLI. It shares the daemon's configuration
// and SQLite database: submissions queued here are picked up by lecternd,
// and status, result, and jobs commands read the same stores the daemon
// writes.
package main
