package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stixgraph/internal/storage"
	"stixgraph/pkg/leaselock"
	"stixgraph/pkg/logger"
	"stixgraph/pkg/store"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeleteMessage is the payload published to delete_queue when a feed is
// removed.
type DeleteMessage struct {
	FeedID string `json:"feed_id"`
}

// ProcessDeleteMessage removes a feed's stored bundles and its database
// rows. It waits on the feed lease so an in-flight conversion finishes
// before the feed disappears underneath it.
func ProcessDeleteMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	conn *pgxpool.Pool,
	graphStore store.GraphStore,
	msg string,
) error {
	data := new(DeleteMessage)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to decode delete message: %w", err)
	}

	lockClient := leaselock.New(conn)
	lease, err := lockClient.Acquire(ctx, "feed:"+data.FeedID, leaselock.Options{
		TTL:         5 * time.Minute,
		Wait:        true,
		TokenPrefix: fmt.Sprintf("delete/%s/", data.FeedID),
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.Release(context.Background())
	}()

	if err := storage.DeleteFeedObjects(lease.Context, s3Client, data.FeedID); err != nil {
		return err
	}

	err = graphStore.DeleteFeed(lease.Context, data.FeedID)
	if err != nil && !errors.Is(err, store.ErrFeedNotFound) {
		return err
	}

	logger.Info("[Queue] Feed deleted", "feed_id", data.FeedID)
	return nil
}
