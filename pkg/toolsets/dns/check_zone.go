package dns

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/miekg/dns"
	"k8s.io/utils/ptr"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/api"
)

const checkZoneTimeout = 5 * time.Second

// zoneCheckReport is the result of the out-of-band zone verification: the
// grid's WAPI view of the zone cross-checked against what its resolver
// actually serves.
type zoneCheckReport struct {
	Fqdn        string   `json:"fqdn"`
	Nameserver  string   `json:"nameserver"`
	OnGrid      bool     `json:"on_grid"`
	Resolvable  bool     `json:"resolvable"`
	SOASerial   uint32   `json:"soa_serial,omitempty"`
	SOAMname    string   `json:"soa_mname,omitempty"`
	Nameservers []string `json:"nameservers,omitempty"`
	Problems    []string `json:"problems,omitempty"`
}

func initCheckZone() []api.ServerTool {
	return []api.ServerTool{
		{Tool: api.Tool{
			Name:        "dns_check_zone",
			Description: "Verify a DNS zone end to end: confirm it exists on the Infoblox grid and that the grid's resolver answers SOA and NS queries for it",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"fqdn": {
						Type:        "string",
						Description: "Zone FQDN to verify (e.g. example.com)",
					},
					"nameserver": {
						Type:        "string",
						Description: "Nameserver to query (host or host:port, defaults to the grid master)",
					},
				},
				Required: []string{"fqdn"},
			},
			Annotations: api.ToolAnnotations{
				Title:           "DNS: Check Zone",
				ReadOnlyHint:    ptr.To(true),
				DestructiveHint: ptr.To(false),
				OpenWorldHint:   ptr.To(true),
			},
		}, Handler: checkZone},
	}
}

func checkZone(params api.ToolHandlerParams) (*api.ToolCallResult, error) {
	fqdn, err := api.RequiredString(params, "fqdn")
	if err != nil {
		return api.NewToolCallResult("", err), nil
	}
	nameserver := api.OptionalString(params, "nameserver", params.Client.GridHost())
	if _, _, splitErr := net.SplitHostPort(nameserver); splitErr != nil {
		nameserver = net.JoinHostPort(nameserver, "53")
	}

	report := &zoneCheckReport{Fqdn: fqdn, Nameserver: nameserver}

	query := url.Values{}
	query.Set("fqdn", fqdn)
	zones, err := params.SearchObjects(params, "zone_auth", query)
	if err != nil {
		return api.NewToolCallResult("", fmt.Errorf("failed to look up zone %s on the grid: %w", fqdn, err)), nil
	}
	report.OnGrid = len(zones) > 0
	if !report.OnGrid {
		report.Problems = append(report.Problems, "zone is not configured as an authoritative zone on the grid")
	}

	client := &dns.Client{Timeout: checkZoneTimeout}
	zoneName := dns.Fqdn(fqdn)

	soa := new(dns.Msg)
	soa.SetQuestion(zoneName, dns.TypeSOA)
	if response, _, soaErr := client.ExchangeContext(params.Context, soa, nameserver); soaErr != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("SOA query failed: %v", soaErr))
	} else if response.Rcode != dns.RcodeSuccess {
		report.Problems = append(report.Problems, fmt.Sprintf("SOA query returned %s", dns.RcodeToString[response.Rcode]))
	} else {
		for _, answer := range response.Answer {
			if record, ok := answer.(*dns.SOA); ok {
				report.Resolvable = true
				report.SOASerial = record.Serial
				report.SOAMname = record.Ns
				break
			}
		}
		if !report.Resolvable {
			report.Problems = append(report.Problems, "SOA query succeeded but returned no SOA record")
		}
	}

	ns := new(dns.Msg)
	ns.SetQuestion(zoneName, dns.TypeNS)
	if response, _, nsErr := client.ExchangeContext(params.Context, ns, nameserver); nsErr == nil && response.Rcode == dns.RcodeSuccess {
		for _, answer := range response.Answer {
			if record, ok := answer.(*dns.NS); ok {
				report.Nameservers = append(report.Nameservers, record.Ns)
			}
		}
	}

	return api.NewToolCallResult(params.ListOutput.Print(report)), nil
}
