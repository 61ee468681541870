// Package resilience groups the fault tolerance helpers used by the WeRSS
// client: circuit breakers around the backend API and feed fetchers, and
// retry with exponential backoff and jitter.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.APIConfig())
//	total, err := circuitbreaker.Run(cb, func() (int, error) {
//	    return client.CountArticles(ctx)
//	})
//
//	err := retry.WithBackoff(ctx, retry.APIConfig(), func() error {
//	    return performOperation()
//	})
package resilience
