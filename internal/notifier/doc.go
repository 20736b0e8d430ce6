// Package notifier delivers scheduled content and mood reminders to users.
//
// The Service implements schedule.Messenger on top of a transport.Adapter. It
// owns the outbound policy: a global token bucket, bounded retries with
// backoff, platform flood waits, and message formatting per content type.
// Failures surface as *domain.DeliveryError.
//
// # History
//
// A small in-memory history of recent deliveries is kept for admin views.
package notifier
