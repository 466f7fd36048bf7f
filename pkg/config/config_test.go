package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func (s *ConfigSuite) writeConfig(content string) string {
	path := filepath.Join(s.T().TempDir(), "config.toml")
	err := os.WriteFile(path, []byte(content), 0644)
	s.Require().NoErrorf(err, "Expected to write test config file %s", path)
	return path
}

func (s *ConfigSuite) TestDefaults() {
	cfg := Default()
	s.Run("list_output defaults to json", func() {
		s.Equal("json", cfg.ListOutput)
	})
	s.Run("all toolsets enabled by default", func() {
		s.Equal([]string{"dns", "dhcp", "ipam", "grid", "awsimport"}, cfg.Toolsets)
	})
	s.Run("wapi_version defaults to v2.13.6", func() {
		s.Equal("v2.13.6", cfg.Wapi.WapiVersion)
	})
	s.Run("timeout_seconds defaults to 30", func() {
		s.Equal(30, cfg.Wapi.TimeoutSeconds)
	})
	s.Run("max_retries defaults to 3", func() {
		s.Equal(3, cfg.Wapi.MaxRetries)
	})
	s.Run("read_only defaults to false", func() {
		s.False(cfg.ReadOnly)
	})
}

func (s *ConfigSuite) TestReadConfigMissingFile() {
	config, err := Read("non-existent-config.toml", "")
	s.Run("returns error for missing file", func() {
		s.Error(err)
	})
	s.Run("returns nil config for missing file", func() {
		s.Nil(config)
	})
}

func (s *ConfigSuite) TestReadConfigInvalid() {
	invalidConfigPath := s.writeConfig(`
		[wapi]
		grid_host = "gm.example.com"
		[[wapi]]
	`)
	config, err := Read(invalidConfigPath, "")
	s.Run("returns error for invalid file", func() {
		s.Error(err)
	})
	s.Run("error message contains toml error with line number", func() {
		expected := "toml: line 4"
		s.Containsf(err.Error(), expected, "Expected error message to contain line number, got %v", err)
	})
	s.Run("returns nil config for invalid file", func() {
		s.Nil(config)
	})
}

func (s *ConfigSuite) TestReadConfigValid() {
	validConfigPath := s.writeConfig(`
		log_level = 1
		port = "9999"
		list_output = "yaml"
		read_only = true
		disable_destructive = true
		toolsets = ["dns", "ipam"]
		enabled_tools = ["dns_list_zones", "ipam_network_utilization"]
		disabled_tools = ["dns_delete_zone"]

		[wapi]
		grid_host = "gm.example.com"
		username = "admin"
		password = "infoblox"
		wapi_version = "v2.12"
		verify_ssl = false
		timeout_seconds = 10
		max_retries = 5
	`)
	config, err := Read(validConfigPath, "")
	s.Require().NoError(err, "Expected no error for valid file")
	s.Require().NotNil(config)
	s.Run("sets server fields", func() {
		s.Equal(1, config.LogLevel)
		s.Equal("9999", config.Port)
		s.Equal("yaml", config.ListOutput)
		s.True(config.ReadOnly)
		s.True(config.DisableDestructive)
		s.Equal([]string{"dns", "ipam"}, config.Toolsets)
		s.Equal([]string{"dns_list_zones", "ipam_network_utilization"}, config.EnabledTools)
		s.Equal([]string{"dns_delete_zone"}, config.DisabledTools)
	})
	s.Run("sets wapi connection fields", func() {
		s.Equal("gm.example.com", config.Wapi.GridHost)
		s.Equal("admin", config.Wapi.Username)
		s.Equal("infoblox", config.Wapi.Password)
		s.Equal("v2.12", config.Wapi.WapiVersion)
		s.Require().NotNil(config.Wapi.VerifySSL)
		s.False(*config.Wapi.VerifySSL)
		s.Equal(10, config.Wapi.TimeoutSeconds)
		s.Equal(5, config.Wapi.MaxRetries)
	})
}

func (s *ConfigSuite) TestReadConfigPartialKeepsDefaults() {
	partialConfigPath := s.writeConfig(`
		[wapi]
		grid_host = "gm.example.com"
	`)
	config, err := Read(partialConfigPath, "")
	s.Require().NoError(err)
	s.Run("unset wapi fields keep defaults", func() {
		s.Equal("v2.13.6", config.Wapi.WapiVersion)
		s.Equal(30, config.Wapi.TimeoutSeconds)
		s.Equal(3, config.Wapi.MaxRetries)
	})
	s.Run("unset server fields keep defaults", func() {
		s.Equal("json", config.ListOutput)
		s.Equal([]string{"dns", "dhcp", "ipam", "grid", "awsimport"}, config.Toolsets)
	})
}

func (s *ConfigSuite) TestDropInConfigs() {
	mainPath := s.writeConfig(`
		port = "8080"
		[wapi]
		grid_host = "gm.example.com"
		username = "main-user"
	`)
	dropInDir := s.T().TempDir()
	// Lexical order: 10- loads before 20-, later files win.
	s.Require().NoError(os.WriteFile(filepath.Join(dropInDir, "10-user.toml"), []byte(`
		[wapi]
		username = "drop-in-user"
	`), 0644))
	s.Require().NoError(os.WriteFile(filepath.Join(dropInDir, "20-port.toml"), []byte(`
		port = "9090"
	`), 0644))
	s.Require().NoError(os.WriteFile(filepath.Join(dropInDir, ".hidden.toml"), []byte(`
		port = "1111"
	`), 0644))
	s.Require().NoError(os.WriteFile(filepath.Join(dropInDir, "ignored.yaml"), []byte(`port: "2222"`), 0644))

	config, err := Read(mainPath, dropInDir)
	s.Require().NoError(err)
	s.Run("drop-in overrides main config", func() {
		s.Equal("drop-in-user", config.Wapi.Username)
		s.Equal("9090", config.Port)
	})
	s.Run("main config values without drop-in override survive", func() {
		s.Equal("gm.example.com", config.Wapi.GridHost)
	})
}

func (s *ConfigSuite) TestDropInDirMissing() {
	mainPath := s.writeConfig(`port = "8080"`)
	config, err := Read(mainPath, filepath.Join(s.T().TempDir(), "does-not-exist"))
	s.Run("missing drop-in dir is not an error", func() {
		s.NoError(err)
		s.Equal("8080", config.Port)
	})
}

func (s *ConfigSuite) TestEnvOverrides() {
	s.T().Setenv(EnvGridHost, "env-gm.example.com")
	s.T().Setenv(EnvUsername, "env-user")
	s.T().Setenv(EnvPassword, "env-secret")
	configPath := s.writeConfig(`
		[wapi]
		grid_host = "file-gm.example.com"
		username = "file-user"
		password = "file-secret"
	`)
	config, err := Read(configPath, "")
	s.Require().NoError(err)
	s.Run("environment wins over file", func() {
		s.Equal("env-gm.example.com", config.Wapi.GridHost)
		s.Equal("env-user", config.Wapi.Username)
		s.Equal("env-secret", config.Wapi.Password)
	})
}

func (s *ConfigSuite) TestWapiValidate() {
	s.Run("complete config validates", func() {
		w := WapiConfig{GridHost: "gm.example.com", Username: "admin", Password: "infoblox"}
		s.NoError(w.Validate())
	})
	s.Run("missing grid_host fails", func() {
		w := WapiConfig{Username: "admin", Password: "infoblox"}
		err := w.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "grid_host")
	})
	s.Run("missing username fails", func() {
		w := WapiConfig{GridHost: "gm.example.com", Password: "infoblox"}
		err := w.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "username")
	})
	s.Run("missing password fails", func() {
		w := WapiConfig{GridHost: "gm.example.com", Username: "admin"}
		err := w.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "password")
	})
}

func (s *ConfigSuite) TestReadToml() {
	config, err := ReadToml([]byte(`
		list_output = "yaml"
		[wapi]
		grid_host = "gm.example.com"
	`))
	s.Require().NoError(err)
	s.Equal("yaml", config.ListOutput)
	s.Equal("gm.example.com", config.Wapi.GridHost)
}

func (s *ConfigSuite) TestTelemetryConfig() {
	s.Run("disabled without endpoint", func() {
		c := &TelemetryConfig{}
		s.False(c.IsEnabled())
	})
	s.Run("enabled when endpoint set", func() {
		c := &TelemetryConfig{Endpoint: "http://localhost:4317"}
		s.True(c.IsEnabled())
	})
	s.Run("explicit disable wins over endpoint", func() {
		enabled := false
		c := &TelemetryConfig{Enabled: &enabled, Endpoint: "http://localhost:4317"}
		s.False(c.IsEnabled())
	})
	s.Run("env endpoint takes precedence", func() {
		s.T().Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
		c := &TelemetryConfig{Endpoint: "http://localhost:4317"}
		s.Equal("http://collector:4317", c.GetEndpoint())
	})
	s.Run("sampler arg formats float", func() {
		arg := 0.25
		c := &TelemetryConfig{TracesSamplerArg: &arg}
		s.Equal("0.25", c.GetTracesSamplerArg())
	})
}

func TestConfig(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}
