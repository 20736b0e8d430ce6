// Package schedule decides, on every tick, which users receive a message.
//
// Per user and tick the orchestrator:
//   - resolves timing preferences (defaults are created lazily by the store)
//   - computes a mood boost from recent mood entries
//   - computes the per-tick send probability and draws once
//   - applies the minimum-gap and daily-ceiling veto
//   - dispatches content and logs a SendRecord
//
// The engine keeps no per-user state across ticks; everything is read fresh
// from the Store. The learner runs on its own, slower cadence and nudges
// peak windows toward the hours with the best observed engagement.
package schedule
