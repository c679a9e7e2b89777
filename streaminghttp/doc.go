// Package streaminghttp implements the request/response subset of the MCP
// Streamable HTTP transport as a standard net/http handler.
//
// A single endpoint (DefaultPath, "/mcp") accepts:
//
//	POST   one JSON-RPC message (batches are rejected)
//	GET    an idle text/event-stream for clients that open one
//	DELETE session termination
//
// An initialize request without an Mcp-Session-Id header creates a session.
// The returned header value is a compact JWS (EdDSA) wrapping the stored
// session id, so forged or tampered ids are rejected before the session store
// is consulted. Requests are answered with a single Server-Sent Event carrying
// the JSON-RPC response; notifications and client responses get 202.
//
// Sessions live in a sessions.Store. Backed by storage/redis and configured
// with a shared WithSessionSigningKey, several replicas can serve the same
// session.
//
// # Authentication
//
// Without WithAuthenticator every request runs as AnonymousUserID. With one,
// requests need an Authorization: Bearer token; missing or invalid tokens get
// 401 with a WWW-Authenticate challenge. Sessions are bound to the token
// subject that created them. WithProtectedResource additionally serves the
// RFC 9728 metadata document and names it in the challenge so clients can
// find the authorization server.
//
// Example:
//
//	h, err := streaminghttp.New(server, store,
//	    streaminghttp.WithLogger(logger),
//	    streaminghttp.WithAuthenticator(authn),
//	)
//	if err != nil { return err }
//	http.ListenAndServe(":8080", h)
package streaminghttp
