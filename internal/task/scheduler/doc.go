// Package scheduler fires named jobs on cron expressions or wall-clock aligned
// intervals, in a configurable timezone. Overlapping runs of the same job are
// skipped and panics are recovered.
package scheduler
