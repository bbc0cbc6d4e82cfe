package ports

import (
	"context"
	"encoding/json"
)

// RPCClient is the JSON-RPC façade in front of the chain node pool.
// Implementations own endpoint selection, retries and per-call
// timeouts; callers only see the final result or error.
type RPCClient interface {
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}
