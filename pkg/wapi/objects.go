package wapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/netip"
	"net/url"

	"k8s.io/klog/v2"
)

// SearchObjects performs a GET search for objType with the given query
// parameters. The grid returns a list for searches and a single object for
// some singletons; a single object is normalized into a one-element list.
func (c *Client) SearchObjects(ctx context.Context, objType string, query url.Values) ([]map[string]any, error) {
	raw, err := c.Execute(ctx, http.MethodGet, objType, query, nil)
	if err != nil {
		return nil, err
	}
	var list []map[string]any
	if err = json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single map[string]any
	if err = json.Unmarshal(raw, &single); err == nil {
		if single == nil {
			return []map[string]any{}, nil
		}
		return []map[string]any{single}, nil
	}
	return nil, &MalformedResponseError{Message: fmt.Sprintf("expected object list for %s", objType), Body: string(raw)}
}

// GetObject fetches a single object by its _ref. returnFields, when
// non-empty, is passed as _return_fields.
func (c *Client) GetObject(ctx context.Context, ref string, returnFields string) (map[string]any, error) {
	query := url.Values{}
	if returnFields != "" {
		query.Set("_return_fields", returnFields)
	}
	raw, err := c.Execute(ctx, http.MethodGet, ref, query, nil)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err = json.Unmarshal(raw, &obj); err != nil {
		return nil, &MalformedResponseError{Message: fmt.Sprintf("expected object for %s", ref), Body: string(raw)}
	}
	return obj, nil
}

// CreateObject creates an object of objType with the given fields and
// returns the new object's _ref. The grid answers either with a bare JSON
// string (the ref) or with an object carrying _ref; anything else is a
// malformed response.
func (c *Client) CreateObject(ctx context.Context, objType string, fields map[string]any) (string, error) {
	raw, err := c.Execute(ctx, http.MethodPost, objType, nil, fields)
	if err != nil {
		return "", err
	}
	return refFromResponse(raw)
}

// UpdateObject updates the object identified by ref and returns the
// (possibly changed) _ref.
func (c *Client) UpdateObject(ctx context.Context, ref string, fields map[string]any) (string, error) {
	raw, err := c.Execute(ctx, http.MethodPut, ref, nil, fields)
	if err != nil {
		return "", err
	}
	return refFromResponse(raw)
}

// DeleteObject deletes the object identified by ref and returns the deleted
// object's _ref.
func (c *Client) DeleteObject(ctx context.Context, ref string) (string, error) {
	raw, err := c.Execute(ctx, http.MethodDelete, ref, nil, nil)
	if err != nil {
		return "", err
	}
	return refFromResponse(raw)
}

// refFromResponse normalizes the two legal create/update/delete response
// shapes into the object reference.
func refFromResponse(raw json.RawMessage) (string, error) {
	var ref string
	if err := json.Unmarshal(raw, &ref); err == nil {
		return ref, nil
	}
	var obj struct {
		Ref string `json:"_ref"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Ref != "" {
		return obj.Ref, nil
	}
	return "", &MalformedResponseError{Message: "expected object reference", Body: string(raw)}
}

// CallFunction invokes a WAPI object function (_function=name) on the given
// ref and returns the raw result.
func (c *Client) CallFunction(ctx context.Context, ref, function string, args map[string]any) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("_function", function)
	return c.Execute(ctx, http.MethodPost, ref, query, args)
}

// NextAvailableIPs asks the grid for n available IPs in the network
// identified by networkRef. An unexpected response shape yields an empty
// list, not an error: the caller treats "none available" and "grid did not
// say" the same way.
func (c *Client) NextAvailableIPs(ctx context.Context, networkRef string, n int) ([]string, error) {
	if n <= 0 {
		n = 1
	}
	raw, err := c.CallFunction(ctx, networkRef, "next_available_ip", map[string]any{"num": n})
	if err != nil {
		return nil, err
	}
	var result struct {
		IPs []string `json:"ips"`
	}
	if err = json.Unmarshal(raw, &result); err != nil || result.IPs == nil {
		klog.V(2).Infof("next_available_ip returned unexpected shape for %s", networkRef)
		return []string{}, nil
	}
	return result.IPs, nil
}

// UtilizationReport describes how full a network is.
type UtilizationReport struct {
	Network            string  `json:"network"`
	UsableHosts        int64   `json:"usable_hosts"`
	UsedHosts          int64   `json:"used_hosts"`
	UtilizationPercent float64 `json:"utilization_percent"`
	// Source is "grid" when the appliance reported utilization natively,
	// "computed" when it was derived from address counts.
	Source string `json:"source"`
}

// NetworkUtilization reports the utilization of the network identified by
// ref. The grid-reported utilization field (per-mille) is preferred; when
// absent the report is computed from the CIDR size and the fixed address
// and active lease counts. Sub-query failures count as zero so a partially
// answering grid still yields a usable report.
func (c *Client) NetworkUtilization(ctx context.Context, ref string) (*UtilizationReport, error) {
	obj, err := c.GetObject(ctx, ref, "network,utilization")
	if err != nil {
		return nil, err
	}
	cidr, _ := obj["network"].(string)
	report := &UtilizationReport{Network: cidr}

	if utilization, ok := obj["utilization"].(float64); ok {
		report.UtilizationPercent = utilization / 10.0
		report.Source = "grid"
		if usable, cidrErr := usableHosts(cidr); cidrErr == nil {
			report.UsableHosts = usable
			report.UsedHosts = int64(math.Round(float64(usable) * report.UtilizationPercent / 100.0))
		}
		return report, nil
	}

	usable, err := usableHosts(cidr)
	if err != nil {
		return nil, &MalformedResponseError{Message: fmt.Sprintf("network object has no parseable CIDR: %v", err), Body: cidr}
	}
	report.UsableHosts = usable
	report.UsedHosts = c.countAddressObjects(ctx, "fixedaddress", cidr) + c.countActiveLeases(ctx, cidr)
	if usable > 0 {
		report.UtilizationPercent = float64(report.UsedHosts) / float64(usable) * 100.0
	}
	report.Source = "computed"
	return report, nil
}

// usableHosts returns the number of assignable host addresses in an IPv4
// CIDR: 2^(32-prefix) minus network and broadcast addresses. /31 and /32
// have no such reserved addresses.
func usableHosts(cidr string) (int64, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return 0, err
	}
	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if hostBits > 62 {
		return math.MaxInt64, nil
	}
	total := int64(1) << hostBits
	if hostBits <= 1 {
		return total, nil
	}
	return total - 2, nil
}

func (c *Client) countAddressObjects(ctx context.Context, objType, cidr string) int64 {
	query := url.Values{}
	query.Set("network", cidr)
	objects, err := c.SearchObjects(ctx, objType, query)
	if err != nil {
		klog.V(2).Infof("utilization sub-query for %s in %s failed, counting zero: %v", objType, cidr, err)
		return 0
	}
	return int64(len(objects))
}

func (c *Client) countActiveLeases(ctx context.Context, cidr string) int64 {
	query := url.Values{}
	query.Set("network", cidr)
	query.Set("_return_fields", "binding_state")
	leases, err := c.SearchObjects(ctx, "lease", query)
	if err != nil {
		klog.V(2).Infof("utilization sub-query for leases in %s failed, counting zero: %v", cidr, err)
		return 0
	}
	var active int64
	for _, lease := range leases {
		if state, _ := lease["binding_state"].(string); state == "ACTIVE" {
			active++
		}
	}
	return active
}
