package cmd

import (
	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/config"
	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/mcp"
)

// watchConfig reloads the server configuration whenever the config file or
// the drop-in directory changes. Returns nil when no config paths are set.
func (m *MCPServerOptions) watchConfig(mcpServer *mcp.Server) *fsnotify.Watcher {
	if m.ConfigPath == "" && m.ConfigDir == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		klog.Warningf("failed to create config watcher: %v", err)
		return nil
	}
	if m.ConfigPath != "" {
		if err = watcher.Add(m.ConfigPath); err != nil {
			klog.Warningf("failed to watch config file %s: %v", m.ConfigPath, err)
		}
	}
	if m.ConfigDir != "" {
		if err = watcher.Add(m.ConfigDir); err != nil {
			klog.Warningf("failed to watch config directory %s: %v", m.ConfigDir, err)
		}
	}
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) {
					continue
				}
				klog.V(2).Infof("Config change detected (%s), reloading configuration", event)
				cnf, err := config.Read(m.ConfigPath, m.ConfigDir)
				if err != nil {
					klog.Warningf("failed to re-read configuration, keeping previous one: %v", err)
					continue
				}
				if err = mcpServer.ReloadConfiguration(cnf); err != nil {
					klog.Warningf("failed to reload configuration: %v", err)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return watcher
}
