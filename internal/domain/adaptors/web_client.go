package adaptors

import "context"

// WebClient fetches one resource and reports its status code. Non-2xx
// statuses are not errors; callers decide what a 404 means.
type WebClient interface {
	Do(ctx context.Context, url string, method string) ([]byte, int, error)
}
