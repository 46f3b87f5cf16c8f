// Package logging centralizes slog construction and the structured field
// vocabulary shared across Lectern components. Use NewFromConfig for the
// daemon logger, NewComponentLogger to tag a subsystem, and WithContext to
// pick up job/stage/correlation fields the pipeline stores on the context.
package logging
