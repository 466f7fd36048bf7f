package config

// Default returns the default configuration. Connection fields are left
// empty on purpose: there is no sensible default grid.
func Default() *StaticConfig {
	return &StaticConfig{
		ListOutput: "json",
		Toolsets:   []string{"dns", "dhcp", "ipam", "grid", "awsimport"},
		Wapi: WapiConfig{
			WapiVersion:    "v2.13.6",
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
	}
}
