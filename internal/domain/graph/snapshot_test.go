package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
)

func node(id string, kind graphtypes.NodeKind) graphtypes.NodeRecord {
	return graphtypes.NodeRecord{ID: id, Kind: kind}
}

func edge(src, dst string, typ graphtypes.EdgeType) graphtypes.EdgeRecord {
	return graphtypes.EdgeRecord{Source: src, Target: dst, Type: typ}
}

func TestNewSnapshotBuildsIndexes(t *testing.T) {
	s, err := NewSnapshot(
		[]graphtypes.NodeRecord{
			node("c1", graphtypes.KindCompany),
			node("c2", graphtypes.KindCompany),
			node("ct1", graphtypes.KindContract),
		},
		[]graphtypes.EdgeRecord{
			edge("ct1", "c1", graphtypes.EdgeHasParty),
			edge("ct1", "c2", graphtypes.EdgeHasParty),
			edge("c1", "c2", graphtypes.EdgeTradesWith),
		},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, s.NodeCount())
	assert.Equal(t, 3, s.EdgeCount())

	n, ok := s.Node("ct1")
	require.True(t, ok)
	assert.Equal(t, graphtypes.KindContract, n.Kind)

	assert.Len(t, s.OutEdges("ct1"), 2)
	assert.Len(t, s.InEdges("c2"), 2)
	assert.Len(t, s.OutEdgesByType("ct1", graphtypes.EdgeHasParty), 2)
	assert.Len(t, s.OutEdgesByType("ct1", graphtypes.EdgeTradesWith), 0)
	assert.Len(t, s.NodesOfKind(graphtypes.KindCompany), 2)
	assert.Empty(t, s.NodesOfKind(graphtypes.KindPerson))
}

func TestNewSnapshotReferentialIntegrity(t *testing.T) {
	_, err := NewSnapshot(
		[]graphtypes.NodeRecord{node("c1", graphtypes.KindCompany)},
		[]graphtypes.EdgeRecord{edge("c1", "ghost", graphtypes.EdgeTradesWith)},
	)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeReferentialIntegrity))
	assert.True(t, errors.IsFatal(err))

	_, err = NewSnapshot(
		[]graphtypes.NodeRecord{node("c1", graphtypes.KindCompany)},
		[]graphtypes.EdgeRecord{edge("ghost", "c1", graphtypes.EdgeTradesWith)},
	)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeReferentialIntegrity))
}

func TestNewSnapshotRejectsDuplicatesAndUnknowns(t *testing.T) {
	_, err := NewSnapshot(
		[]graphtypes.NodeRecord{node("c1", graphtypes.KindCompany), node("c1", graphtypes.KindCompany)},
		nil,
	)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))

	_, err = NewSnapshot([]graphtypes.NodeRecord{node("x", "Planet")}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownNodeKind))

	_, err = NewSnapshot(
		[]graphtypes.NodeRecord{node("a", graphtypes.KindCompany), node("b", graphtypes.KindCompany)},
		[]graphtypes.EdgeRecord{edge("a", "b", "TELEPORTS_TO")},
	)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownEdgeType))
}

func TestStructuralHashOrderIndependent(t *testing.T) {
	nodes := []graphtypes.NodeRecord{
		node("c1", graphtypes.KindCompany),
		node("c2", graphtypes.KindCompany),
		node("p1", graphtypes.KindPerson),
	}
	edges := []graphtypes.EdgeRecord{
		edge("p1", "c1", graphtypes.EdgeLegalPerson),
		edge("c1", "c2", graphtypes.EdgeTradesWith),
	}

	a, err := NewSnapshot(nodes, edges)
	require.NoError(t, err)

	b, err := NewSnapshot(
		[]graphtypes.NodeRecord{nodes[2], nodes[0], nodes[1]},
		[]graphtypes.EdgeRecord{edges[1], edges[0]},
	)
	require.NoError(t, err)

	assert.Equal(t, a.StructuralHash(), b.StructuralHash())
}

func TestStructuralHashChangesWithTopology(t *testing.T) {
	nodes := []graphtypes.NodeRecord{
		node("c1", graphtypes.KindCompany),
		node("c2", graphtypes.KindCompany),
	}

	a, err := NewSnapshot(nodes, []graphtypes.EdgeRecord{edge("c1", "c2", graphtypes.EdgeTradesWith)})
	require.NoError(t, err)
	b, err := NewSnapshot(nodes, []graphtypes.EdgeRecord{edge("c2", "c1", graphtypes.EdgeTradesWith)})
	require.NoError(t, err)
	c, err := NewSnapshot(nodes, []graphtypes.EdgeRecord{edge("c1", "c2", graphtypes.EdgeIsSupplier)})
	require.NoError(t, err)

	assert.NotEqual(t, a.StructuralHash(), b.StructuralHash())
	assert.NotEqual(t, a.StructuralHash(), c.StructuralHash())
}

func TestHashFingerprintStable(t *testing.T) {
	fp1 := HashFingerprint(map[string]string{"damping": "0.85", "tolerance": "1e-06"})
	fp2 := HashFingerprint(map[string]string{"tolerance": "1e-06", "damping": "0.85"})
	fp3 := HashFingerprint(map[string]string{"damping": "0.65", "tolerance": "1e-06"})

	assert.Equal(t, fp1, fp2)
	assert.NotEqual(t, fp1, fp3)
}
