package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"stixgraph/internal/storage"
	"stixgraph/internal/util"
	"stixgraph/pkg/bundle"
	"stixgraph/pkg/graph"
	"stixgraph/pkg/leaselock"
	"stixgraph/pkg/logger"
	"stixgraph/pkg/stix"
	"stixgraph/pkg/store"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConvertMessage is the payload published to convert_queue when a feed's
// bundles are ready to be merged into a graph.
type ConvertMessage struct {
	FeedID string `json:"feed_id"`
}

// ProcessConvertMessage loads every bundle stored for the feed, converts
// them into one graph, and persists the result. The feed lease guarantees
// that only one worker converts a given feed at a time.
func ProcessConvertMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	conn *pgxpool.Pool,
	graphStore store.GraphStore,
	msg string,
) error {
	data := new(ConvertMessage)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to decode convert message: %w", err)
	}

	feed, err := graphStore.GetFeed(ctx, data.FeedID)
	if err != nil {
		return err
	}

	if err := graphStore.SetFeedState(ctx, feed.ID, store.FeedStateProcessing, ""); err != nil {
		return err
	}

	lockClient := leaselock.New(conn)
	lease, err := lockClient.Acquire(ctx, "feed:"+feed.ID, leaselock.Options{
		TTL:         10 * time.Minute,
		RenewEvery:  4 * time.Minute,
		Wait:        true,
		TokenPrefix: fmt.Sprintf("convert/%s/", feed.ID),
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.Release(context.Background())
	}()

	start := time.Now()
	convertErr := convertFeed(lease.Context, s3Client, graphStore, feed)
	if convertErr != nil {
		if stateErr := graphStore.SetFeedState(ctx, feed.ID, store.FeedStateFailed, convertErr.Error()); stateErr != nil {
			logger.Error("[Queue] Failed to mark feed as failed", "feed_id", feed.ID, "err", stateErr)
		}
		return convertErr
	}

	if err := graphStore.SetFeedState(ctx, feed.ID, store.FeedStateReady, ""); err != nil {
		return err
	}

	logger.Info(
		"[Queue] Feed converted",
		"feed_id", feed.ID,
		"duration_sec", time.Since(start).Seconds(),
	)
	return nil
}

func convertFeed(
	ctx context.Context,
	s3Client *awss3.Client,
	graphStore store.GraphStore,
	feed store.Feed,
) error {
	keys, err := storage.ListBundleKeys(ctx, s3Client, feed.ID)
	if err != nil {
		return err
	}

	bundles := make([][]stix.RawRecord, 0, len(keys))
	for _, key := range keys {
		var body []byte
		err := util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
			var fetchErr error
			body, fetchErr = storage.GetObject(ctx, s3Client, key)
			return fetchErr
		})
		if err != nil {
			return fmt.Errorf("failed to fetch bundle %s: %w", key, err)
		}

		records, err := bundle.Decode(path.Base(key), body)
		if err != nil {
			return err
		}
		bundles = append(bundles, records)
	}

	converter := graph.NewConverter(graph.NewConverterParams{
		EdgeMode:           graph.ParseEdgeMode(feed.EdgeMode),
		IncludeObservables: feed.IncludeObservables,
	})
	g, diags, err := converter.Convert(ctx, bundles)
	if err != nil {
		return err
	}

	return graphStore.SaveGraph(ctx, feed.ID, g, diags)
}
