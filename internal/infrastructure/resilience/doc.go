/*
Package resilience provides a circuit breaker for downstream calls.

# Overview

The breaker guards a single peer. While the peer keeps failing, calls are
rejected with ErrCircuitOpen instead of waiting out the full timeout. It
never retries: every admitted call runs exactly once.

# Usage

	breaker := resilience.New("downstream", resilience.Settings{
		Timeout:       30 * time.Second,
		OnStateChange: resilience.LogStateChanges(logger),
	})

	err := breaker.Execute(ctx, func(ctx context.Context) error {
		return call(ctx)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
