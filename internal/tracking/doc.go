// Package tracking computes progress for scheduled items.
//
// Both habits and goals are an active weekday set plus a lifetime window.
// Progress walks every day from the creation date to today (or the target
// date, whichever comes first), checks it against the weekday set and counts
// the recorded completions. The walk is linear in the age of the item and is
// recomputed on every read; results may be cached by the caller.
package tracking
