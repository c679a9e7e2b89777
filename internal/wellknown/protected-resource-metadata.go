// Package wellknown serves OAuth 2.0 Protected Resource Metadata (RFC 9728)
// so that MCP clients can discover which authorization server issues tokens
// for the HTTP endpoint.
package wellknown

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// ProtectedResourcePath is the well-known path for the metadata document.
const ProtectedResourcePath = "/.well-known/oauth-protected-resource"

// ProtectedResourceMetadata is the subset of RFC 9728 fields this server
// advertises.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers,omitempty"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
	ResourceDocumentation  string   `json:"resource_documentation,omitempty"`
}

// MetadataURL returns the absolute URL of the metadata document for a
// resource identifier such as https://mcp.example.com/mcp.
func MetadataURL(resource string) (string, error) {
	u, err := url.Parse(resource)
	if err != nil {
		return "", err
	}
	path := strings.TrimSuffix(u.Path, "/")
	u.Path = ProtectedResourcePath + path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Handler serves meta as JSON on GET.
func Handler(meta ProtectedResourceMetadata) http.Handler {
	if len(meta.BearerMethodsSupported) == 0 {
		meta.BearerMethodsSupported = []string{"header"}
	}
	body, _ := json.Marshal(meta)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(body)
	})
}
