package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPruneEdges(t *testing.T) {
	nodes := []NodeRecord{
		{ID: "c1", Kind: KindCompany},
		{ID: "ct1", Kind: KindContract},
	}
	edges := []EdgeRecord{
		{Source: "ct1", Target: "c1", Type: EdgeHasParty},
		{Source: "c1", Target: "gone", Type: EdgeControls},
		{Source: "gone", Target: "c1", Type: EdgeControls},
	}

	kept := PruneEdges(nodes, edges)
	assert.Len(t, kept, 1)
	assert.Equal(t, EdgeHasParty, kept[0].Type)
}

func TestPruneEdgesEmptyNodeSet(t *testing.T) {
	edges := []EdgeRecord{{Source: "a", Target: "b", Type: EdgeTradesWith}}
	assert.Empty(t, PruneEdges(nil, edges))
}
