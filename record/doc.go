// Package record persists application and user records alongside their
// file references. One backing store (CSV files or a sqlite database) is
// selected at startup; they are never written in parallel. Moving data
// between them is the explicit Migrate batch job, not a per-write side
// effect.
package record
