// Package mcpservice defines the capability interfaces the protocol engine
// dispatches to, together with the static containers used by this server to
// hold its tools and resources.
//
// Conventions used throughout this package:
//   - Capability discovery methods return (cap, ok, err). A false ok indicates
//     that the capability is not supported for the given session; err is
//     reserved for internal failures while determining support.
//   - All methods accept a context.Context which MUST be honored for
//     cancellation.
//   - Pagination uses Page[T]; a nil cursor requests the first page.
//
// Tools are declared from a typed argument struct:
//
//	type getProblemArgs struct {
//	    TitleSlug string `json:"titleSlug" jsonschema_description:"The URL slug of the problem"`
//	}
//
//	reg := mcpservice.NewRegistry()
//	err := reg.RegisterTool(mcpservice.NewTool("get_problem",
//	    func(ctx context.Context, s sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[getProblemArgs]) error {
//	        return w.AppendText(r.Args().TitleSlug)
//	    },
//	    mcpservice.WithToolDescription("Retrieves a problem"),
//	))
//
// Resources are either fixed URIs (NewResource) or RFC 6570 templates
// (NewResourceTemplate) whose variables reach the handler by name.
//
//	srv := mcpservice.NewServer(
//	    mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "leetcode-mcp", Version: "1.0.0"}),
//	    mcpservice.WithRegistry(reg),
//	)
package mcpservice
