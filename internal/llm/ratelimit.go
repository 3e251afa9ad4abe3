package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedClient throttles calls to an underlying Client.
type RateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// RateLimited wraps next so that at most rps calls per second (with the given
// burst) reach it. A non-positive rps disables throttling.
func RateLimited(next Client, rps float64, burst int) Client {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Generate waits for a token, then delegates.
func (c *RateLimitedClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("generator rate limit: %w", err)
	}
	return c.next.Generate(ctx, req)
}

// Close closes the underlying client.
func (c *RateLimitedClient) Close() error {
	return c.next.Close()
}
