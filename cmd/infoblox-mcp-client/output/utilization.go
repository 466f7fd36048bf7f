package output

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"sigs.k8s.io/yaml"
)

type utilizationItem struct {
	Network            string  `json:"network"`
	UsableHosts        int64   `json:"usable_hosts"`
	UsedHosts          int64   `json:"used_hosts"`
	UtilizationPercent float64 `json:"utilization_percent"`
	Source             string  `json:"source"`
}

// PrintNetworkUtilization renders the ipam_network_utilization result. The
// server may answer in YAML or JSON depending on its list_output setting, so
// YAML is parsed through sigs.k8s.io/yaml which accepts both.
func PrintNetworkUtilization(raw string, jsonOut bool) {
	items, ok := parseUtilization(raw)
	if !ok {
		fmt.Println(raw)
		return
	}
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(items)
		return
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Network < items[j].Network })
	for _, it := range items {
		// Color by fill level: red above 90%, yellow above 75%, else green
		color := colorGreen
		if it.UtilizationPercent > 90 {
			color = colorRed
		} else if it.UtilizationPercent > 75 {
			color = colorYellow
		}
		fmt.Printf("%s%s%s used(%d) usable(%d) %s%.1f%%%s [%s]\n",
			color, it.Network, colorReset,
			it.UsedHosts, it.UsableHosts,
			color, it.UtilizationPercent, colorReset,
			it.Source)
	}
}

func parseUtilization(raw string) ([]utilizationItem, bool) {
	var items []utilizationItem
	if err := yaml.Unmarshal([]byte(raw), &items); err == nil && len(items) > 0 {
		return items, true
	}
	var single utilizationItem
	if err := yaml.Unmarshal([]byte(raw), &single); err == nil && single.Network != "" {
		return []utilizationItem{single}, true
	}
	return nil, false
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
)
