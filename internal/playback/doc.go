// Package playback serializes clip playback per guild.
//
// Each guild gets a Queue with a single worker goroutine. The worker is the
// only code that touches the guild's voice connection: it pops requests in
// arrival order, joins or moves to the requested channel, plays the clip and
// waits for the sink to report completion before moving on. When the queue
// drains the connection is released and the worker parks until the next
// Enqueue.
//
// The Coordinator owns one Queue per guild and checks who may play and skip.
package playback
