package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stixgraph/pkg/graph"
	"stixgraph/pkg/stix"
	"stixgraph/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStore implements store.GraphStore on PostgreSQL. Writes are
// serialized with a mutex so a shared connection pool never interleaves two
// graph replacements for the same feed.
type GraphDBStore struct {
	conn   pgxIConn
	dbLock sync.Mutex
}

// NewGraphDBStore creates a GraphDBStore over an existing connection or
// pool.
func NewGraphDBStore(conn pgxIConn) *GraphDBStore {
	return &GraphDBStore{conn: conn}
}

const insertChunkSize = 500

func chunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

func (s *GraphDBStore) CreateFeed(ctx context.Context, params store.CreateFeedParams) (store.Feed, error) {
	row := s.conn.QueryRow(ctx, `
		INSERT INTO feeds (id, name, edge_mode, include_observables, state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, edge_mode, include_observables, state, error, created_at, updated_at`,
		params.ID, params.Name, params.EdgeMode, params.IncludeObservables, store.FeedStatePending,
	)
	return scanFeed(row)
}

func (s *GraphDBStore) GetFeed(ctx context.Context, id string) (store.Feed, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT id, name, edge_mode, include_observables, state, error, created_at, updated_at
		FROM feeds WHERE id = $1`, id,
	)
	feed, err := scanFeed(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.Feed{}, store.ErrFeedNotFound
	}
	return feed, err
}

func (s *GraphDBStore) ListFeeds(ctx context.Context) ([]store.Feed, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, name, edge_mode, include_observables, state, error, created_at, updated_at
		FROM feeds ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	feeds := make([]store.Feed, 0)
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

func (s *GraphDBStore) SetFeedState(ctx context.Context, id, state, errMessage string) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE feeds SET state = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, state, errMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to update feed state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrFeedNotFound
	}
	return nil
}

func (s *GraphDBStore) DeleteFeed(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrFeedNotFound
	}
	return nil
}

// SaveGraph replaces the feed's stored nodes, edges, and diagnostics in one
// transaction. Edge insertion order is kept through a sequence column so a
// reloaded MultiEdge graph preserves its edge multiset order.
func (s *GraphDBStore) SaveGraph(ctx context.Context, feedID string, g *graph.Graph, diags []stix.Diagnostic) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM graph_nodes WHERE feed_id = $1`, feedID); err != nil {
		return fmt.Errorf("failed to clear stored nodes: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM graph_edges WHERE feed_id = $1`, feedID); err != nil {
		return fmt.Errorf("failed to clear stored edges: %w", err)
	}

	nodes := g.Nodes()
	err = chunkRange(len(nodes), insertChunkSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, node := range nodes[start:end] {
			props, err := json.Marshal(node.Properties)
			if err != nil {
				return fmt.Errorf("failed to encode node %s: %w", node.ID, err)
			}
			batch.Queue(`
				INSERT INTO graph_nodes (feed_id, node_id, kind, properties, placeholder)
				VALUES ($1, $2, $3, $4, $5)`,
				feedID, node.ID, node.Kind, props, node.Placeholder,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return err
	}

	edges := g.Edges()
	err = chunkRange(len(edges), insertChunkSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for i, edge := range edges[start:end] {
			attrs, err := json.Marshal(edge.Attributes)
			if err != nil {
				return fmt.Errorf("failed to encode edge attributes: %w", err)
			}
			batch.Queue(`
				INSERT INTO graph_edges (feed_id, seq, source_id, target_id, label, attributes)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				feedID, start+i, edge.SourceID, edge.TargetID, edge.Label, attrs,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return err
	}

	encodedDiags, err := json.Marshal(diags)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE feeds SET diagnostics = $2, updated_at = now() WHERE id = $1`,
		feedID, encodedDiags,
	); err != nil {
		return fmt.Errorf("failed to store diagnostics: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit graph: %w", err)
	}
	return nil
}

// LoadGraph rebuilds a feed's stored graph in its original insertion order.
func (s *GraphDBStore) LoadGraph(ctx context.Context, feedID string) (*graph.Graph, []stix.Diagnostic, error) {
	feed, err := s.GetFeed(ctx, feedID)
	if err != nil {
		return nil, nil, err
	}
	g := graph.NewGraph(graph.ParseEdgeMode(feed.EdgeMode))

	rows, err := s.conn.Query(ctx, `
		SELECT node_id, kind, properties, placeholder
		FROM graph_nodes WHERE feed_id = $1 ORDER BY id`, feedID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			nodeID      string
			kind        string
			propsJSON   []byte
			placeholder bool
		)
		if err := rows.Scan(&nodeID, &kind, &propsJSON, &placeholder); err != nil {
			return nil, nil, fmt.Errorf("failed to scan node: %w", err)
		}
		if placeholder {
			g.EnsureNode(nodeID)
			continue
		}
		var props map[string]any
		if err := json.Unmarshal(propsJSON, &props); err != nil {
			return nil, nil, fmt.Errorf("failed to decode node %s: %w", nodeID, err)
		}
		g.UpsertNode(nodeID, kind, props)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	edgeRows, err := s.conn.Query(ctx, `
		SELECT source_id, target_id, label, attributes
		FROM graph_edges WHERE feed_id = $1 ORDER BY seq`, feedID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var (
			sourceID  string
			targetID  string
			label     string
			attrsJSON []byte
		)
		if err := edgeRows.Scan(&sourceID, &targetID, &label, &attrsJSON); err != nil {
			return nil, nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		var attrs map[string]any
		if err := json.Unmarshal(attrsJSON, &attrs); err != nil {
			return nil, nil, fmt.Errorf("failed to decode edge attributes: %w", err)
		}
		g.InsertEdge(graph.Edge{SourceID: sourceID, TargetID: targetID, Label: label, Attributes: attrs})
	}
	if err := edgeRows.Err(); err != nil {
		return nil, nil, err
	}

	var diags []stix.Diagnostic
	var diagsJSON []byte
	row := s.conn.QueryRow(ctx, `SELECT diagnostics FROM feeds WHERE id = $1`, feedID)
	if err := row.Scan(&diagsJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to load diagnostics: %w", err)
	}
	if len(diagsJSON) > 0 {
		if err := json.Unmarshal(diagsJSON, &diags); err != nil {
			return nil, nil, fmt.Errorf("failed to decode diagnostics: %w", err)
		}
	}

	return g, diags, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (store.Feed, error) {
	var feed store.Feed
	err := row.Scan(
		&feed.ID,
		&feed.Name,
		&feed.EdgeMode,
		&feed.IncludeObservables,
		&feed.State,
		&feed.Error,
		&feed.CreatedAt,
		&feed.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return store.Feed{}, err
		}
		return store.Feed{}, fmt.Errorf("failed to scan feed: %w", err)
	}
	return feed, nil
}
