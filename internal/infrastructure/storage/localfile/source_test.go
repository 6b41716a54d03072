package localfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
)

func writeRecords(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFetchRecords(t *testing.T) {
	path := writeRecords(t, `{
		"nodes": [
			{"id": "c1", "kind": "Company", "attrs": {"company_number": "911100", "name": "Alpha"}},
			{"id": "c2", "kind": "Company", "attrs": {"company_number": "922200"}},
			{"id": "ct1", "kind": "Contract"}
		],
		"edges": [
			{"source": "ct1", "target": "c1", "type": "HAS_PARTY"}
		]
	}`)
	src := NewSource(path)

	nodes, edges, err := src.FetchRecords(context.Background(), graphtypes.Scope{})
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
	assert.Len(t, edges, 1)
}

func TestFetchRecordsScopeFilter(t *testing.T) {
	path := writeRecords(t, `{
		"nodes": [
			{"id": "c1", "kind": "Company", "attrs": {"company_number": "911100"}},
			{"id": "c2", "kind": "Company", "attrs": {"company_number": "922200"}},
			{"id": "ct1", "kind": "Contract"}
		],
		"edges": []
	}`)
	src := NewSource(path)

	nodes, _, err := src.FetchRecords(context.Background(), graphtypes.Scope{
		CompanyNumbers: []string{"911100"},
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	// contracts carry no company_number and pass the filter
	assert.ElementsMatch(t, []string{"c1", "ct1"}, ids)
}

func TestFetchRecordsScopeFilterDropsDanglingEdges(t *testing.T) {
	path := writeRecords(t, `{
		"nodes": [
			{"id": "c1", "kind": "Company", "attrs": {"company_number": "911100"}},
			{"id": "c2", "kind": "Company", "attrs": {"company_number": "922200"}},
			{"id": "ct1", "kind": "Contract"}
		],
		"edges": [
			{"source": "c1", "target": "c2", "type": "CONTROLS"},
			{"source": "ct1", "target": "c1", "type": "HAS_PARTY"}
		]
	}`)
	src := NewSource(path)

	nodes, edges, err := src.FetchRecords(context.Background(), graphtypes.Scope{
		CompanyNumbers: []string{"911100"},
	})
	require.NoError(t, err)

	// the edge into the filtered-out c2 must not survive the scope
	require.Len(t, edges, 1)
	assert.Equal(t, graphtypes.EdgeHasParty, edges[0].Type)

	_, err = graph.NewSnapshot(nodes, edges)
	assert.NoError(t, err)
}

func TestFetchRecordsMissingFile(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "absent.json"))

	_, _, err := src.FetchRecords(context.Background(), graphtypes.Scope{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSnapshotLoadFailed, errors.GetCode(err))
}

func TestFetchRecordsMalformed(t *testing.T) {
	src := NewSource(writeRecords(t, `{"nodes": [`))

	_, _, err := src.FetchRecords(context.Background(), graphtypes.Scope{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSnapshotLoadFailed, errors.GetCode(err))
}
