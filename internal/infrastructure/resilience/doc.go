/*
Package resilience provides the circuit breaker that guards the session
transport.

# Overview

A breaker counts transport outcomes per generation. Once ReadyToTrip
approves, it opens and every new request fails fast with ErrCircuitOpen
until Timeout elapses; then a limited number of probes decide whether to
close again.

# Usage

	breaker := resilience.New("transport", resilience.Settings{
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 10
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	resp, err := resilience.Do(breaker, func() (*resty.Response, error) {
		return req.Execute(method, url)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                          Open
*/
package resilience
