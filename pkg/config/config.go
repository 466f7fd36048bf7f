package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"k8s.io/klog/v2"
)

// Environment variables that override the [wapi] connection settings.
// They take precedence over any value in the TOML files so that
// credentials can be kept out of configuration on disk.
const (
	EnvGridHost = "INFOBLOX_GRID_HOST"
	EnvUsername = "INFOBLOX_USERNAME"
	EnvPassword = "INFOBLOX_PASSWORD"
)

// StaticConfig is the configuration for the server.
// It allows to configure server specific settings, the WAPI connection,
// and tools to be enabled or disabled.
type StaticConfig struct {
	LogLevel   int    `toml:"log_level,omitzero"`
	Port       string `toml:"port,omitempty"`
	SSEBaseURL string `toml:"sse_base_url,omitempty"`
	ListOutput string `toml:"list_output,omitempty"`
	// When true, expose only tools annotated with readOnlyHint=true
	ReadOnly bool `toml:"read_only,omitempty"`
	// When true, disable tools annotated with destructiveHint=true
	DisableDestructive bool     `toml:"disable_destructive,omitempty"`
	Toolsets           []string `toml:"toolsets,omitempty"`
	EnabledTools       []string `toml:"enabled_tools,omitempty"`
	DisabledTools      []string `toml:"disabled_tools,omitempty"`

	// Authorization-related fields
	// RequireOAuth indicates whether the HTTP server requires OAuth for authentication.
	RequireOAuth bool `toml:"require_oauth,omitempty"`
	// OAuthAudience is the valid audience for the OAuth tokens, used for offline JWT claim validation.
	OAuthAudience string `toml:"oauth_audience,omitempty"`
	// AuthorizationURL is the URL of the OIDC authorization server used for token validation.
	AuthorizationURL string `toml:"authorization_url,omitempty"`
	// ServerURL is the public URL of this server, served in the protected resource metadata endpoint.
	ServerURL string `toml:"server_url,omitempty"`
	// CertificateAuthority is a PEM bundle used to verify the authorization server's certificate.
	CertificateAuthority string `toml:"certificate_authority,omitempty"`
	// JwksURL is an optional JWKS endpoint advertised in the protected resource metadata.
	JwksURL string `toml:"jwks_url,omitempty"`

	// Wapi holds the Infoblox grid connection settings.
	Wapi WapiConfig `toml:"wapi"`

	// Telemetry holds the OpenTelemetry configuration.
	Telemetry TelemetryConfig `toml:"telemetry,omitempty"`
}

// WapiConfig is the connection configuration for the Infoblox grid.
// It is immutable once a wapi.Client has been constructed from it.
type WapiConfig struct {
	// GridHost is the IP address or FQDN of the grid master.
	GridHost string `toml:"grid_host,omitempty"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	// WapiVersion is the WAPI version path segment (e.g. "v2.13.6").
	// A missing "v" prefix is added by wapi.NewClient.
	WapiVersion string `toml:"wapi_version,omitempty"`
	// VerifySSL controls TLS certificate verification towards the grid.
	// Defaults to true; grids with self-signed certificates need an explicit false.
	VerifySSL *bool `toml:"verify_ssl,omitempty"`
	// TimeoutSeconds is the per-request timeout towards the grid.
	TimeoutSeconds int `toml:"timeout_seconds,omitzero"`
	// MaxRetries is the number of retries for transient WAPI failures.
	MaxRetries int `toml:"max_retries,omitzero"`
}

type ReadConfigOpt func(cfg *StaticConfig)

// Read reads the toml file, applies drop-in configs from configDir (if provided),
// and returns the StaticConfig with any opts applied.
// Loading order: defaults → main config file → drop-in files (lexically sorted) → env overrides
func Read(configPath string, configDir string, opts ...ReadConfigOpt) (*StaticConfig, error) {
	cfg := Default()

	if configPath != "" {
		klog.V(2).Infof("Loading main config from: %s", configPath)
		if err := mergeConfigFile(cfg, configPath, opts...); err != nil {
			return nil, fmt.Errorf("failed to load main config file %s: %w", configPath, err)
		}
	}

	if configDir != "" {
		if err := loadDropInConfigs(cfg, configDir, opts...); err != nil {
			return nil, fmt.Errorf("failed to load drop-in configs from %s: %w", configDir, err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// mergeConfigFile reads a config file and merges its values into the target config.
// Values present in the file will overwrite existing values in cfg.
// Values not present in the file will remain unchanged in cfg.
func mergeConfigFile(cfg *StaticConfig, filePath string, opts ...ReadConfigOpt) error {
	configData, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	if _, err = toml.NewDecoder(bytes.NewReader(configData)).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode TOML: %w", err)
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return nil
}

// loadDropInConfigs loads and merges config files from a drop-in directory.
// Files are processed in lexical (alphabetical) order.
// Only files with .toml extension are processed; dotfiles are ignored.
func loadDropInConfigs(cfg *StaticConfig, dropInDir string, opts ...ReadConfigOpt) error {
	info, err := os.Stat(dropInDir)
	if err != nil {
		if os.IsNotExist(err) {
			klog.V(2).Infof("Drop-in config directory does not exist, skipping: %s", dropInDir)
			return nil
		}
		return fmt.Errorf("failed to stat drop-in directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("drop-in config path is not a directory: %s", dropInDir)
	}

	files, err := getSortedConfigFiles(dropInDir)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		klog.V(2).Infof("No drop-in config files found in: %s", dropInDir)
		return nil
	}

	klog.V(2).Infof("Loading %d drop-in config file(s) from: %s", len(files), dropInDir)

	for _, file := range files {
		klog.V(3).Infof("  - Merging drop-in config: %s", filepath.Base(file))
		if err := mergeConfigFile(cfg, file, opts...); err != nil {
			return fmt.Errorf("failed to merge drop-in config %s: %w", file, err)
		}
	}

	return nil
}

// getSortedConfigFiles returns a sorted list of .toml files in the specified directory.
// Dotfiles (starting with '.') and non-.toml files are ignored.
func getSortedConfigFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		if strings.HasPrefix(name, ".") {
			klog.V(4).Infof("Skipping dotfile: %s", name)
			continue
		}

		if !strings.HasSuffix(name, ".toml") {
			klog.V(4).Infof("Skipping non-.toml file: %s", name)
			continue
		}

		files = append(files, filepath.Join(dir, name))
	}

	sort.Strings(files)

	return files, nil
}

// ReadToml reads the toml data and returns the StaticConfig, with any opts applied
func ReadToml(configData []byte, opts ...ReadConfigOpt) (*StaticConfig, error) {
	config := Default()
	if _, err := toml.NewDecoder(bytes.NewReader(configData)).Decode(config); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(config)
	}

	config.applyEnvOverrides()

	return config, nil
}

func (c *StaticConfig) applyEnvOverrides() {
	if host := os.Getenv(EnvGridHost); host != "" {
		c.Wapi.GridHost = host
	}
	if user := os.Getenv(EnvUsername); user != "" {
		c.Wapi.Username = user
	}
	if password := os.Getenv(EnvPassword); password != "" {
		c.Wapi.Password = password
	}
}

// Validate checks the WAPI connection settings for the fields that have no
// usable zero value.
func (w *WapiConfig) Validate() error {
	if strings.TrimSpace(w.GridHost) == "" {
		return fmt.Errorf("wapi.grid_host is required (or set %s)", EnvGridHost)
	}
	if w.Username == "" {
		return fmt.Errorf("wapi.username is required (or set %s)", EnvUsername)
	}
	if w.Password == "" {
		return fmt.Errorf("wapi.password is required (or set %s)", EnvPassword)
	}
	return nil
}
