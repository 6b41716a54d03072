package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
)

// Source reads node and edge records from the graph staging tables.
//
// Schema expected:
//
//	graph_nodes(node_id text, kind text, company_number text, period text, attrs jsonb)
//	graph_edges(source_id text, target_id text, edge_type text, attrs jsonb)
type Source struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

func NewSource(pool *pgxpool.Pool, log logging.Logger) *Source {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Source{pool: pool, log: log.Named("postgres")}
}

const selectNodes = `
SELECT node_id, kind, attrs
FROM graph_nodes
WHERE (cardinality($1::text[]) = 0 OR company_number = ANY($1) OR company_number IS NULL)
  AND (cardinality($2::text[]) = 0 OR period = ANY($2) OR period IS NULL)`

const selectEdges = `
SELECT source_id, target_id, edge_type, attrs
FROM graph_edges`

// FetchRecords loads the staged records for the scope. Edges touching a node
// outside the scope (or one skipped for bad attrs) are dropped so the
// snapshot never sees a dangling endpoint.
func (s *Source) FetchRecords(ctx context.Context, scope graphtypes.Scope) ([]graphtypes.NodeRecord, []graphtypes.EdgeRecord, error) {
	nodes, err := s.fetchNodes(ctx, scope)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeSnapshotLoadFailed, "staging node read failed")
	}
	edges, err := s.fetchEdges(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeSnapshotLoadFailed, "staging edge read failed")
	}
	edges = graphtypes.PruneEdges(nodes, edges)
	s.log.Debug("snapshot records fetched",
		logging.Int("nodes", len(nodes)),
		logging.Int("edges", len(edges)))
	return nodes, edges, nil
}

func (s *Source) fetchNodes(ctx context.Context, scope graphtypes.Scope) ([]graphtypes.NodeRecord, error) {
	rows, err := s.pool.Query(ctx, selectNodes, scope.CompanyNumbers, scope.Periods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []graphtypes.NodeRecord
	for rows.Next() {
		var (
			id, kind string
			raw      []byte
		)
		if err := rows.Scan(&id, &kind, &raw); err != nil {
			return nil, err
		}
		attrs, err := decodeAttrs(raw)
		if err != nil {
			s.log.Warn("node attrs undecodable, skipping",
				logging.String("node_id", id))
			continue
		}
		nodes = append(nodes, graphtypes.NodeRecord{
			ID:    id,
			Kind:  graphtypes.NodeKind(kind),
			Attrs: attrs,
		})
	}
	return nodes, rows.Err()
}

func (s *Source) fetchEdges(ctx context.Context) ([]graphtypes.EdgeRecord, error) {
	rows, err := s.pool.Query(ctx, selectEdges)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []graphtypes.EdgeRecord
	for rows.Next() {
		var (
			source, target, edgeType string
			raw                      []byte
		)
		if err := rows.Scan(&source, &target, &edgeType, &raw); err != nil {
			return nil, err
		}
		attrs, err := decodeAttrs(raw)
		if err != nil {
			s.log.Warn("edge attrs undecodable, skipping",
				logging.String("source", source),
				logging.String("target", target))
			continue
		}
		edges = append(edges, graphtypes.EdgeRecord{
			Source: source,
			Target: target,
			Type:   graphtypes.EdgeType(edgeType),
			Attrs:  attrs,
		})
	}
	return edges, rows.Err()
}

func decodeAttrs(raw []byte) (graphtypes.Attributes, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var attrs graphtypes.Attributes
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
