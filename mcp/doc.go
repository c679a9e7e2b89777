// Package mcp contains the Model Context Protocol data types and constants
// spoken by the LeetCode server. It mirrors the wire representation of the
// protocol (exported structs with json tags, string constants for method
// names) and is free of transport logic.
//
// Only the subset used here is modelled: initialization, tools and
// resources. Prompts, sampling, elicitation and roots are not part of this
// server.
//
// Example (tool result construction):
//
//	res := &mcp.CallToolResult{
//	    Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: `{"ok":true}`}},
//	}
package mcp
