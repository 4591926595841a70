/*
Package security provides secret management and request authentication for
the proxy.

# Secret Management

The shared auth secret may be supplied directly in config, or as a
${secret:name} reference resolved at startup through one or more providers:

	manager := secrets.NewManager([]secrets.SecretProvider{
		secrets.NewEnvProvider("STREAMPROXY_SECRET_"),
	}, cacheConfig)

	resolved, err := manager.ResolveReferences(ctx, cfg.Auth.APIPassword)
	if err != nil {
		log.Fatal(err)
	}

# Authentication

auth.Gate validates incoming requests (token or signed-query mode) and
attaches the decoded envelope.ProxyData to the request context:

	gate := auth.NewGate(codec, cfg.Auth.APIPassword, logger)
	http.Handle("/proxy/stream", gate.Middleware(streamHandler))
*/
package security
