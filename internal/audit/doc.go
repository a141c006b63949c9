// Package audit keeps a local record of which allowlist hashes were issued
// to which subject.
//
// Store persists rows in SQLite. Packing talks to it through a Recorder so a
// slow or missing database never fails a packing session: AsyncRecorder
// queues one batch per session for a background writer, waits briefly when
// the queue is full and drops the batch only if the writer stays stalled.
package audit
