package awsimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"k8s.io/klog/v2"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/wapi"
)

// The importer reconciles an AWS VPC inventory export (CSV) against the
// grid's IPAM data: every CidrBlock becomes a network object in the target
// network view, tagged with extensible attributes derived from the AWS
// columns, unless a network with that CIDR already exists.

const (
	columnCidrBlock = "CidrBlock"
	columnTags      = "Tags"

	importComment  = "Imported from AWS PVC"
	conflictReason = "network already exists"
)

// eaColumns are the CSV columns mapped directly to extensible attributes
// of the same name.
var eaColumns = []string{"AccountId", "Region", "VpcId", "Name"}

// ObjectClient is the slice of the WAPI client the importer needs.
type ObjectClient interface {
	SearchObjects(ctx context.Context, objType string, query url.Values) ([]map[string]any, error)
	CreateObject(ctx context.Context, objType string, fields map[string]any) (string, error)
}

// ValidationError indicates the input file cannot be processed at all
// (unreadable, or missing a required column). Per-row problems never use
// it: they accumulate in the result instead.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Conflict records a CIDR that already exists in the grid and is therefore
// skipped, with enough detail to locate the existing object.
type Conflict struct {
	Network      string `json:"network"`
	Reason       string `json:"reason"`
	ExistingView string `json:"existing_view"`
	TargetView   string `json:"target_view"`
	ExistingRef  string `json:"existing_ref,omitempty"`
}

// Result is the outcome of an import run. The slices are sorted and a CIDR
// appears in at most one of Conflicts, CreatedNetworks, and Errors.
type Result struct {
	RunID           string     `json:"run_id"`
	DryRun          bool       `json:"dry_run"`
	TotalRecords    int        `json:"total_records"`
	ValidRecords    int        `json:"valid_records"`
	Conflicts       []Conflict `json:"conflicts"`
	MissingEAs      []string   `json:"missing_eas"`
	MappedEAs       []string   `json:"mapped_eas"`
	CreatedNetworks []string   `json:"created_networks"`
	Errors          []string   `json:"errors"`
}

// Importer runs the reconciliation pipeline.
type Importer struct {
	client ObjectClient
	fs     afero.Fs
}

func NewImporter(client ObjectClient, fs afero.Fs) *Importer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Importer{client: client, fs: fs}
}

// Analyze processes the CSV without touching the grid's data: conflicts and
// EA mappings are reported exactly as Execute would see them.
func (i *Importer) Analyze(ctx context.Context, path, networkView string) (*Result, error) {
	return i.run(ctx, path, networkView, true)
}

// Execute processes the CSV and creates the missing networks. With dryRun
// it behaves like Analyze. Existing networks are never overwritten, so
// re-running a partial import is idempotent: previously created CIDRs show
// up as conflicts.
func (i *Importer) Execute(ctx context.Context, path, networkView string, dryRun bool) (*Result, error) {
	return i.run(ctx, path, networkView, dryRun)
}

func (i *Importer) run(ctx context.Context, path, networkView string, dryRun bool) (*Result, error) {
	if networkView == "" {
		networkView = "default"
	}
	result := &Result{
		RunID:           uuid.NewString(),
		DryRun:          dryRun,
		Conflicts:       []Conflict{},
		MissingEAs:      []string{},
		MappedEAs:       []string{},
		CreatedNetworks: []string{},
		Errors:          []string{},
	}
	klog.V(1).Infof("AWS import run %s: file=%s view=%s dry_run=%t", result.RunID, path, networkView, dryRun)

	file, err := i.fs.Open(path)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("cannot open import file %s: %v", path, err)}
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("cannot read CSV header: %v", err)}
	}
	columns := map[string]int{}
	for idx, name := range header {
		columns[strings.TrimSpace(name)] = idx
	}
	for _, required := range []string{columnCidrBlock, columnTags} {
		if _, ok := columns[required]; !ok {
			return nil, &ValidationError{Message: fmt.Sprintf("CSV is missing required column %q", required)}
		}
	}

	eaDefs := i.fetchEADefinitions(ctx)
	missingEAs := map[string]bool{}
	mappedEAs := map[string]bool{}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", result.TotalRecords+1, err))
			break
		}
		result.TotalRecords++
		cidr := strings.TrimSpace(cell(row, columns[columnCidrBlock]))
		if cidr == "" {
			continue
		}
		if _, err := netip.ParsePrefix(cidr); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: invalid CIDR", cidr))
			continue
		}
		conflict, err := i.findConflict(ctx, cidr, networkView)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: conflict check failed: %v", cidr, err))
			continue
		}
		if conflict != nil {
			result.Conflicts = append(result.Conflicts, *conflict)
			if dryRun {
				// Analysis still reports EA mappings for conflicting rows.
				i.mapEAs(row, columns, eaDefs, missingEAs, mappedEAs)
			}
			continue
		}
		result.ValidRecords++

		extattrs := i.mapEAs(row, columns, eaDefs, missingEAs, mappedEAs)
		if dryRun {
			continue
		}

		fields := map[string]any{
			"network":      cidr,
			"network_view": networkView,
			"comment":      importComment,
		}
		if len(extattrs) > 0 {
			fields["extattrs"] = extattrs
		}
		if _, err := i.client.CreateObject(ctx, "network", fields); err != nil {
			var conflictErr *wapi.ConflictError
			if errors.As(err, &conflictErr) {
				result.Conflicts = append(result.Conflicts, Conflict{
					Network:    cidr,
					Reason:     conflictReason,
					TargetView: networkView,
				})
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: create failed: %v", cidr, err))
			}
			continue
		}
		result.CreatedNetworks = append(result.CreatedNetworks, cidr)
	}

	result.MissingEAs = sortedKeys(missingEAs)
	result.MappedEAs = sortedKeys(mappedEAs)
	sort.Slice(result.Conflicts, func(a, b int) bool {
		return result.Conflicts[a].Network < result.Conflicts[b].Network
	})
	sort.Strings(result.CreatedNetworks)
	klog.V(1).Infof("AWS import run %s: total=%d valid=%d created=%d conflicts=%d errors=%d",
		result.RunID, result.TotalRecords, result.ValidRecords,
		len(result.CreatedNetworks), len(result.Conflicts), len(result.Errors))
	return result, nil
}

// fetchEADefinitions returns the set of extensible attribute names defined
// on the grid. A failed fetch disables validation (every candidate EA is
// accepted) instead of failing the run.
func (i *Importer) fetchEADefinitions(ctx context.Context) map[string]bool {
	defs := map[string]bool{}
	objects, err := i.client.SearchObjects(ctx, "extensibleattributedef", nil)
	if err != nil {
		klog.V(1).Infof("could not fetch EA definitions, EA validation disabled: %v", err)
		return defs
	}
	for _, obj := range objects {
		if name, ok := obj["name"].(string); ok && name != "" {
			defs[name] = true
		}
	}
	return defs
}

// mapEAs folds a row's EA candidates into the missing/mapped sets and
// returns the extattrs create payload. An empty definition set accepts
// every candidate.
func (i *Importer) mapEAs(row []string, columns map[string]int, eaDefs map[string]bool, missing, mapped map[string]bool) map[string]any {
	extattrs := map[string]any{}
	for name, value := range i.eaCandidates(row, columns) {
		if len(eaDefs) > 0 && !eaDefs[name] {
			missing[name] = true
			continue
		}
		mapped[name] = true
		extattrs[name] = map[string]any{"value": value}
	}
	return extattrs
}

func (i *Importer) findConflict(ctx context.Context, cidr, networkView string) (*Conflict, error) {
	query := url.Values{}
	query.Set("network", cidr)
	query.Set("network_view", networkView)
	existing, err := i.client.SearchObjects(ctx, "network", query)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, nil
	}
	conflict := &Conflict{
		Network:      cidr,
		Reason:       conflictReason,
		ExistingView: "unknown",
		TargetView:   networkView,
	}
	if view, ok := existing[0]["network_view"].(string); ok && view != "" {
		conflict.ExistingView = view
	}
	if ref, ok := existing[0]["_ref"].(string); ok {
		conflict.ExistingRef = ref
	}
	return conflict, nil
}

// eaCandidates collects extensible attribute candidates for a row: the
// fixed AWS columns plus the parsed tag list. Tag parse failures are
// swallowed, the row is imported with whatever the columns provided.
func (i *Importer) eaCandidates(row []string, columns map[string]int) map[string]string {
	candidates := map[string]string{}
	for _, column := range eaColumns {
		idx, ok := columns[column]
		if !ok {
			continue
		}
		if value := strings.TrimSpace(cell(row, idx)); value != "" {
			candidates[column] = value
		}
	}
	if idx, ok := columns[columnTags]; ok {
		tags, err := ParseTags(cell(row, idx))
		if err != nil {
			klog.V(2).Infof("unparseable tag list, skipping tags for row: %v", err)
		}
		for _, tag := range tags {
			if tag.Key != "" {
				candidates[tag.Key] = tag.Value
			}
		}
	}
	return candidates
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
