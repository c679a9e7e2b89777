// Package sessions models the state a transport keeps for a negotiated MCP
// session: the protocol version, the authenticated principal and the client
// identity sent during initialize.
//
// Metadata is persisted through a storage.Storage so the same code serves a
// single process (memory backend) or several replicas sharing Redis. Lifetime
// is a sliding TTL refreshed on every successful Load.
//
//	store := sessions.NewStore(backend, sessions.WithTTL(30*time.Minute))
//	sess, err := store.Create(ctx, sessions.SessionMetadata{UserID: "stdio", ProtocolVersion: v})
//	...
//	sess, err = store.Load(ctx, id)
package sessions
