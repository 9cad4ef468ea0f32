package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reddit-embeddings/internal/event"
	"reddit-embeddings/internal/retry"
)

// MongoSource watches a collection's change stream. Only inserts, replaces and
// updates that touch subreddit or title qualify, so the embedder's own
// plot_embedding writes do not feed back into it.
type MongoSource struct {
	log  *slog.Logger
	coll *mongo.Collection
}

func NewMongo(log *slog.Logger, coll *mongo.Collection) *MongoSource {
	return &MongoSource{log: log, coll: coll}
}

func changeStreamPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "replace"}}}}},
			bson.D{
				{Key: "operationType", Value: "update"},
				{Key: "$or", Value: bson.A{
					bson.D{{Key: "updateDescription.updatedFields.subreddit", Value: bson.D{{Key: "$exists", Value: true}}}},
					bson.D{{Key: "updateDescription.updatedFields.title", Value: bson.D{{Key: "$exists", Value: true}}}},
				}},
			},
		}}}}},
	}
}

func (s *MongoSource) Run(ctx context.Context, handle Handler) error {
	var resumeToken bson.Raw
	attempt := 0
	for {
		opened, err := s.watch(ctx, handle, &resumeToken)
		if ctx.Err() != nil {
			return nil
		}
		if opened {
			attempt = 0
		}
		delay := retry.CappedBackoff(attempt, reconnectBase, reconnectMax)
		attempt++
		s.log.Warn("change stream interrupted", "err", err, "retry_in", delay.String())
		if err := retry.Sleep(ctx, delay); err != nil {
			return nil
		}
	}
}

// watch reports whether the stream opened before it ended. resumeToken is advanced
// past every event seen so a reopened stream continues where this one stopped.
func (s *MongoSource) watch(ctx context.Context, handle Handler, resumeToken *bson.Raw) (bool, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	if *resumeToken != nil {
		opts.SetResumeAfter(*resumeToken)
	}
	cs, err := s.coll.Watch(ctx, changeStreamPipeline(), opts)
	if err != nil {
		return false, fmt.Errorf("watch %s: %w", s.coll.Name(), err)
	}
	defer cs.Close(context.Background())
	s.log.Info("listening for change events", "transport", "mongo", "collection", s.coll.Name())

	for cs.Next(ctx) {
		var ev event.ChangeEvent
		if err := cs.Decode(&ev); err != nil {
			s.log.Error("failed to decode change event", "err", err)
		} else {
			handle(ctx, ev)
		}
		*resumeToken = cs.ResumeToken()
	}
	return true, cs.Err()
}
