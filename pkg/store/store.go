package store

import (
	"context"
	"errors"
	"time"

	"stixgraph/pkg/graph"
	"stixgraph/pkg/stix"
)

// ErrFeedNotFound is returned when a feed id does not exist.
var ErrFeedNotFound = errors.New("feed not found")

// Feed states as they move through the conversion pipeline.
const (
	FeedStatePending    = "pending"
	FeedStateProcessing = "processing"
	FeedStateReady      = "ready"
	FeedStateFailed     = "failed"
)

// Feed is one registered collection of bundle files plus its conversion
// settings and lifecycle state.
type Feed struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	EdgeMode           string    `json:"edge_mode"`
	IncludeObservables bool      `json:"include_observables"`
	State              string    `json:"state"`
	Error              string    `json:"error,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreateFeedParams defines the input for registering a new feed.
type CreateFeedParams struct {
	ID                 string
	Name               string
	EdgeMode           string
	IncludeObservables bool
}

// GraphStore persists feeds and their converted graphs.
type GraphStore interface {
	CreateFeed(ctx context.Context, params CreateFeedParams) (Feed, error)
	GetFeed(ctx context.Context, id string) (Feed, error)
	ListFeeds(ctx context.Context) ([]Feed, error)
	SetFeedState(ctx context.Context, id, state, errMessage string) error
	DeleteFeed(ctx context.Context, id string) error

	// SaveGraph replaces the stored graph of a feed with the given one,
	// diagnostics included, in a single transaction.
	SaveGraph(ctx context.Context, feedID string, g *graph.Graph, diags []stix.Diagnostic) error
	// LoadGraph rebuilds the stored graph of a feed.
	LoadGraph(ctx context.Context, feedID string) (*graph.Graph, []stix.Diagnostic, error)
}
