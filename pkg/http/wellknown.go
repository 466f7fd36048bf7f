package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/config"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/mcp"
)

const (
	oauthAuthorizationServerEndpoint = "/.well-known/oauth-authorization-server"
	oauthProtectedResourceEndpoint   = "/.well-known/oauth-protected-resource"
)

// WellKnownEndpoints are served without authorization so that clients can
// discover the OAuth configuration before obtaining a token.
var WellKnownEndpoints = []string{
	oauthAuthorizationServerEndpoint,
	oauthProtectedResourceEndpoint,
}

// WellKnownHandler serves the /.well-known/ OAuth discovery endpoints.
func WellKnownHandler(mcpServer *mcp.Server, staticConfig *config.StaticConfig, httpClient *http.Client) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(oauthAuthorizationServerEndpoint, OAuthAuthorizationServerHandler(staticConfig, httpClient))
	mux.HandleFunc(oauthProtectedResourceEndpoint, OAuthProtectedResourceHandler(mcpServer, staticConfig))
	return mux
}

// OAuthAuthorizationServerHandler proxies the authorization server metadata
// from the configured authorization server.
func OAuthAuthorizationServerHandler(staticConfig *config.StaticConfig, httpClient *http.Client) http.HandlerFunc {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if staticConfig.AuthorizationURL == "" {
			http.Error(w, "Authorization URL is not configured", http.StatusNotFound)
			return
		}
		req, err := http.NewRequest(r.Method, staticConfig.AuthorizationURL+oauthAuthorizationServerEndpoint, nil)
		if err != nil {
			http.Error(w, "Failed to create request: "+err.Error(), http.StatusInternalServerError)
			return
		}
		resp, err := httpClient.Do(req.WithContext(r.Context()))
		if err != nil {
			http.Error(w, "Failed to perform request: "+err.Error(), http.StatusInternalServerError)
			return
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			http.Error(w, "Failed to read response body: "+err.Error(), http.StatusInternalServerError)
			return
		}
		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(body)
	}
}

// OAuthProtectedResourceHandler serves the protected resource metadata for
// this server.
func OAuthProtectedResourceHandler(mcpServer *mcp.Server, staticConfig *config.StaticConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var authServers []string
		if staticConfig.AuthorizationURL != "" {
			authServers = []string{staticConfig.AuthorizationURL}
		}

		response := map[string]interface{}{
			"authorization_servers":    authServers,
			"scopes_supported":         mcpServer.GetEnabledTools(),
			"bearer_methods_supported": []string{"header"},
		}
		if len(authServers) > 0 {
			response["authorization_server"] = authServers[0]
		}

		if staticConfig.ServerURL != "" {
			response["resource"] = staticConfig.ServerURL
		}

		if staticConfig.JwksURL != "" {
			response["jwks_uri"] = staticConfig.JwksURL
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
