package core

import (
	"context"
)

// APIClient posts a JSON body to a path of the node endpoint and returns the raw response body.
type APIClient interface {
	Post(ctx context.Context, path string, body any) ([]byte, error)
}
