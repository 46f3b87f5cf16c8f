// Package quota enforces per-provider usage budgets over a trailing window.
// Admission checks are advisory: usage is recorded after work completes, and
// bookkeeping failures admit rather than block.
package quota
