/*
Package downstream calls peer services with trace context propagation.

Every call opens a CLIENT span parented on the caller's context, injects
that span's traceparent into the outbound headers and performs a single GET
bounded by the configured timeout (2.5s by default). There are no retries.

A peer status of 400 or above fails the call with *StatusError and marks
the span ERROR, as do transport errors, timeouts (context.DeadlineExceeded)
and, when the breaker is enabled, resilience.ErrCircuitOpen.
*/
package downstream
