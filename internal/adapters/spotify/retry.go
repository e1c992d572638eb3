package spotify

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
)

// retryPolicy bounds how long a single upstream call may keep trying.
type retryPolicy struct {
	attempts int
	base     time.Duration
	ceiling  time.Duration
}

func (c *Client) policy() retryPolicy {
	p := retryPolicy{attempts: c.maxRetries, base: c.baseBackoff, ceiling: 30 * time.Second}
	if p.attempts <= 0 {
		p.attempts = 3
	}
	if p.base <= 0 {
		p.base = 500 * time.Millisecond
	}
	return p
}

// delay is the pause before the next try. A server-supplied hint wins over
// doubling but never exceeds the ceiling.
func (p retryPolicy) delay(try int, hint time.Duration) time.Duration {
	if hint > 0 {
		return min(hint, p.ceiling)
	}
	return min(p.base<<try, p.ceiling)
}

// transient reports whether the outcome of a call is worth repeating.
func transient(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError)
}

// send performs a bodyless request against the Web API, repeating it on
// transport errors, 429 and 5xx answers.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	p := c.policy()
	ctx := req.Context()

	var last string
	for try := 0; try < p.attempts; try++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("spotify: call abandoned: %w", err)
		}

		resp, err := c.httpClient.Do(req) // #nosec G107 -- baseURL is configured, not user input
		if !transient(resp, err) {
			return resp, err
		}

		hint := parseRetryAfter(resp)
		if err != nil {
			last = err.Error()
		} else {
			last = "status " + strconv.Itoa(resp.StatusCode)
			_ = resp.Body.Close()
		}
		log.Printf("WARN spotify: %s %s: %s (try %d of %d)", req.Method, req.URL.Path, last, try+1, p.attempts)

		if try+1 == p.attempts {
			break
		}
		if err := pause(ctx, p.delay(try, hint)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("spotify: gave up after %d tries: %s", p.attempts, last)
}

// parseRetryAfter reads Retry-After as delta seconds or an HTTP date.
// Absent, malformed and past values yield zero.
func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(n, 0)) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("spotify: call abandoned: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
