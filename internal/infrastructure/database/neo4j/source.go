// Package neo4j adapts the graph store into the engine's record-source
// boundary: it fetches the node and edge record sets for a scope and nothing
// else. Query language details stay behind this package.
package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/corpgraph/CorpRisk-Insight/internal/config"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
)

// NewDriver builds and verifies a driver against the configured instance.
func NewDriver(ctx context.Context, cfg config.Neo4jConfig) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
			if cfg.ConnectionTimeout > 0 {
				c.SocketConnectTimeout = cfg.ConnectionTimeout
			}
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "neo4j driver init failed")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "neo4j connectivity check failed")
	}
	return driver, nil
}

// Source reads snapshots from the graph store.
type Source struct {
	driver   neo4j.DriverWithContext
	database string
	log      logging.Logger
}

func NewSource(driver neo4j.DriverWithContext, database string, log logging.Logger) *Source {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Source{driver: driver, database: database, log: log.Named("neo4j")}
}

const nodeQuery = `
MATCH (n)
WHERE n.id IS NOT NULL
  AND (size($companies) = 0 OR n.company_number IN $companies OR n.company_number IS NULL)
  AND (size($periods) = 0 OR n.period IN $periods OR n.period IS NULL)
RETURN n.id AS id, labels(n) AS labels, properties(n) AS props`

const edgeQuery = `
MATCH (a)-[r]->(b)
WHERE a.id IS NOT NULL AND b.id IS NOT NULL
RETURN a.id AS source, type(r) AS type, b.id AS target, properties(r) AS props`

// FetchRecords loads the node and edge record sets for the scope. Edges
// whose endpoints were filtered out (by scope or by an unrecognized label)
// are dropped with them.
func (s *Source) FetchRecords(ctx context.Context, scope graphtypes.Scope) ([]graphtypes.NodeRecord, []graphtypes.EdgeRecord, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	params := map[string]interface{}{
		"companies": stringSlice(scope.CompanyNumbers),
		"periods":   stringSlice(scope.Periods),
	}

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		nodes, err := s.readNodes(ctx, tx, params)
		if err != nil {
			return nil, err
		}
		edges, err := s.readEdges(ctx, tx)
		if err != nil {
			return nil, err
		}
		return [2]interface{}{nodes, edges}, nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeSnapshotLoadFailed, "graph store read failed")
	}

	pair := records.([2]interface{})
	nodes := pair[0].([]graphtypes.NodeRecord)
	edges := graphtypes.PruneEdges(nodes, pair[1].([]graphtypes.EdgeRecord))
	s.log.Debug("snapshot records fetched",
		logging.Int("nodes", len(nodes)),
		logging.Int("edges", len(edges)))
	return nodes, edges, nil
}

func (s *Source) readNodes(ctx context.Context, tx neo4j.ManagedTransaction, params map[string]interface{}) ([]graphtypes.NodeRecord, error) {
	result, err := tx.Run(ctx, nodeQuery, params)
	if err != nil {
		return nil, err
	}

	var nodes []graphtypes.NodeRecord
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("id")
		labels, _ := rec.Get("labels")
		props, _ := rec.Get("props")

		kind := kindFromLabels(labels)
		if kind == "" {
			continue
		}
		nodes = append(nodes, graphtypes.NodeRecord{
			ID:    toString(id),
			Kind:  kind,
			Attrs: toAttrs(props),
		})
	}
	return nodes, result.Err()
}

func (s *Source) readEdges(ctx context.Context, tx neo4j.ManagedTransaction) ([]graphtypes.EdgeRecord, error) {
	result, err := tx.Run(ctx, edgeQuery, nil)
	if err != nil {
		return nil, err
	}

	var edges []graphtypes.EdgeRecord
	for result.Next(ctx) {
		rec := result.Record()
		source, _ := rec.Get("source")
		typ, _ := rec.Get("type")
		target, _ := rec.Get("target")
		props, _ := rec.Get("props")

		edgeType := graphtypes.EdgeType(toString(typ))
		if !edgeType.IsValid() {
			continue
		}
		edges = append(edges, graphtypes.EdgeRecord{
			Source: toString(source),
			Target: toString(target),
			Type:   edgeType,
			Attrs:  toAttrs(props),
		})
	}
	return edges, result.Err()
}

func kindFromLabels(v interface{}) graphtypes.NodeKind {
	labels, ok := v.([]interface{})
	if !ok {
		return ""
	}
	for _, l := range labels {
		kind := graphtypes.NodeKind(toString(l))
		if kind.IsValid() {
			return kind
		}
	}
	return ""
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toAttrs(v interface{}) graphtypes.Attributes {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return graphtypes.Attributes(m)
}

func stringSlice(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
