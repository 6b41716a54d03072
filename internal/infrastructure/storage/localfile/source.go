// Package localfile reads snapshot records from a JSON file. Offline runs
// and the CLI use it in place of a live store.
package localfile

import (
	"context"
	"encoding/json"
	"os"

	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
)

// Source loads records from a single file on every fetch, so edits to the
// file take effect without a restart.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

type recordsFile struct {
	Nodes []graphtypes.NodeRecord `json:"nodes"`
	Edges []graphtypes.EdgeRecord `json:"edges"`
}

// FetchRecords reads the file and applies the scope filter. Nodes without a
// company_number or period attribute pass every filter, matching the store
// adapters; edges touching a filtered-out node are dropped with it.
func (s *Source) FetchRecords(ctx context.Context, scope graphtypes.Scope) ([]graphtypes.NodeRecord, []graphtypes.EdgeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeTimeout, "record fetch cancelled")
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeSnapshotLoadFailed, "records file unreadable")
	}
	var file recordsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeSnapshotLoadFailed, "records file is not valid JSON")
	}

	nodes, edges := file.Nodes, file.Edges
	if len(scope.CompanyNumbers) > 0 || len(scope.Periods) > 0 {
		nodes = filterNodes(file.Nodes, scope)
		edges = graphtypes.PruneEdges(nodes, edges)
	}
	return nodes, edges, nil
}

func filterNodes(nodes []graphtypes.NodeRecord, scope graphtypes.Scope) []graphtypes.NodeRecord {
	companies := toSet(scope.CompanyNumbers)
	periods := toSet(scope.Periods)

	out := nodes[:0:0]
	for _, n := range nodes {
		if !matches(n, "company_number", companies) {
			continue
		}
		if !matches(n, "period", periods) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func matches(n graphtypes.NodeRecord, attr string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	v := n.Attrs.Str(attr)
	if v == "" {
		return true
	}
	_, ok := allowed[v]
	return ok
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
