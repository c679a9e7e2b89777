package capability

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
)

type failure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// encode renders v as compact JSON without HTML escaping.
func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func failureText(errLabel string, err error) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	// Two plain strings always encode.
	text, _ := encode(failure{Error: errLabel, Message: msg})
	return text
}

// ToolSuccess wraps payload in a single text content element. A payload that
// cannot be encoded yields the failure envelope under errLabel instead.
func ToolSuccess(errLabel string, payload any) *mcp.CallToolResult {
	text, err := encode(payload)
	if err != nil {
		return ToolFailure(errLabel, fmt.Errorf("encode payload: %w", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: text}},
	}
}

// ToolFailure wraps {"error": errLabel, "message": err} in a single text
// content element.
func ToolFailure(errLabel string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: failureText(errLabel, err)}},
	}
}

// ResourceSuccess wraps payload as the single contents entry of uri. Encoding
// failures are reported under errLabel.
func ResourceSuccess(uri, mimeType, errLabel string, payload any) []mcp.ResourceContents {
	text, err := encode(payload)
	if err != nil {
		return ResourceFailure(uri, mimeType, errLabel, fmt.Errorf("encode payload: %w", err))
	}
	return []mcp.ResourceContents{{URI: uri, MimeType: mimeType, Text: text}}
}

// ResourceFailure wraps {"error": errLabel, "message": err} as the single
// contents entry of uri.
func ResourceFailure(uri, mimeType, errLabel string, err error) []mcp.ResourceContents {
	return []mcp.ResourceContents{{URI: uri, MimeType: mimeType, Text: failureText(errLabel, err)}}
}
