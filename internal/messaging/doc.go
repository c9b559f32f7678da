// Package messaging carries traced work over a Redis stream.
//
// The Publisher appends {id, sleep_ms, sent_at} entries under a PRODUCER
// span and writes that span's traceparent into the entry fields. The
// Consumer reads through a consumer group, extracts the trace context from
// the fields and processes each entry under a CONSUMER span named
// "process {stream}", so one trace covers request, publish and consume.
//
// Entries are acknowledged only after the handler succeeds; failed entries
// stay in the group's pending list.
package messaging
