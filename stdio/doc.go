// Package stdio implements a single-connection MCP transport over
// stdin/stdout. It is the default way to run the LeetCode server as a
// subprocess of an MCP host.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Auth             : OS user (lightweight implicit principal)
//	Sessions         : One per process, kept in memory unless WithSessionStore is used
//	Transport        : Newline-delimited JSON-RPC
//
// Requests other than initialize and ping are rejected with -32600 until the
// session is initialized. Once it is, requests are served concurrently and
// responses may be written out of order; clients correlate by id. Lines that
// are not JSON yield a -32700 response with a null id.
//
// Example:
//
//	srv := mcpservice.NewServer(
//	    mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "leetcode-mcp", Version: "1.0.0"}),
//	    mcpservice.WithRegistry(reg),
//	)
//	h := stdio.NewHandler(srv, stdio.WithLogger(logger))
//	if err := h.Serve(ctx); err != nil { log.Fatal(err) }
package stdio
