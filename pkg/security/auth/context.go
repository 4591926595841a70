package auth

import (
	"context"

	"github.com/relayforge/streamproxy/pkg/envelope"
)

type contextKey string

const proxyDataKey contextKey = "proxy_data"

// GetProxyData retrieves the ProxyData the gate attached to ctx. ok is
// false only if the gate's middleware was never applied to this request.
func GetProxyData(ctx context.Context) (*envelope.ProxyData, bool) {
	data, ok := ctx.Value(proxyDataKey).(*envelope.ProxyData)
	return data, ok
}

func withProxyData(ctx context.Context, data *envelope.ProxyData) context.Context {
	return context.WithValue(ctx, proxyDataKey, data)
}
