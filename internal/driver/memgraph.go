package driver

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// MemgraphDriver talks to Memgraph (or Neo4j) over bolt.
type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
	log    *zap.Logger
}

func NewMemgraphDriver(uri, username, password string, log *zap.Logger) (*MemgraphDriver, error) {
	d, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}
	if err := d.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}
	log.Info("connected to graph store", zap.String("uri", uri))
	return &MemgraphDriver{Driver: d, log: log}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Task(uuid);",
		"CREATE INDEX ON :Entity(uuid);",
		"CREATE INDEX ON :Commitment(uuid);",
		"CREATE INDEX ON :Organization(uuid);",
		"CREATE INDEX ON :Event(uuid);",
		"CREATE INDEX ON :Fact(uuid);",
		"CREATE INDEX ON :Message(uuid);",

		"CREATE INDEX ON :Task(normalized_name);",
		"CREATE INDEX ON :Entity(normalized_name);",
		"CREATE INDEX ON :Commitment(normalized_name);",
		"CREATE INDEX ON :Organization(normalized_name);",

		"CREATE INDEX ON :Task(owner_id);",
		"CREATE INDEX ON :Entity(type);",
		"CREATE INDEX ON :Event(entity_id);",
		"CREATE INDEX ON :Message(entity_id);",
		"CREATE INDEX ON :Fact(category);",
	}

	for _, q := range queries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// Index may already exist; keep going.
			d.log.Warn("failed to create index", zap.String("query", q), zap.Error(err))
		}
	}
	return nil
}
