// Package updater turns change events into plot_embedding writes.
package updater

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"reddit-embeddings/internal/embeddings"
	"reddit-embeddings/internal/event"
	"reddit-embeddings/internal/store"
)

// Outcome describes how an invocation ended. It is observational only.
type Outcome string

const (
	OutcomeUpdated    Outcome = "updated"
	OutcomeNotUpdated Outcome = "not_updated"
	OutcomeRejected   Outcome = "rejected"
	OutcomeFailed     Outcome = "failed"
)

// Failure stages reported in the "stage" log field.
const (
	StageEvent   = "event"
	StageRequest = "request"
	StageParse   = "parse"
	StageUpdate  = "update"
	StagePanic   = "panic"
)

var errNoDocument = errors.New("change event has no document id")

// Updater requests an embedding for a post and stores it on the same document.
type Updater struct {
	embedder embeddings.Embedder
	store    store.Store
	log      *slog.Logger
}

func New(embedder embeddings.Embedder, st store.Store, log *slog.Logger) *Updater {
	return &Updater{embedder: embedder, store: st, log: log}
}

// Handle processes one change event: at most one embedding request and at most
// one write. Errors and panics are logged and never escape; the returned Outcome
// only says which path was taken.
//
// Documents without a subreddit or title are not rejected. The embedding input
// degrades to ":title", "subreddit:" or ":" and a warning names the missing fields.
func (u *Updater) Handle(ctx context.Context, ev event.ChangeEvent) (outcome Outcome) {
	doc := ev.FullDocument
	log := u.log.With("invocation_id", uuid.NewString(), "document_id", doc.IDString())

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("embedding update failed", "stage", StagePanic, "panic", rec)
			outcome = OutcomeFailed
		}
	}()

	// An update looked up after the document was deleted carries no fullDocument.
	if doc.ID == nil {
		return u.fail(log, StageEvent, errNoDocument)
	}

	log.Info("processing document")
	if missing := doc.Missing(); len(missing) > 0 {
		log.Warn("document is missing text fields", "missing", missing)
	}

	vec, err := u.embedder.Embed(ctx, doc.Text())
	if err != nil {
		if status, ok := embeddings.StatusCode(err); ok {
			log.Warn("failed to receive embedding", "status", status)
			return OutcomeRejected
		}
		return u.fail(log, failureStage(err), err)
	}
	log.Info("successfully received embedding", "dimensions", len(vec))

	modified, err := u.store.SetPlotEmbedding(ctx, doc.ID, vec)
	if err != nil {
		return u.fail(log, StageUpdate, err)
	}
	if modified == 1 {
		log.Info("successfully updated the document")
		return OutcomeUpdated
	}
	log.Warn("failed to update the document", "modified", modified)
	return OutcomeNotUpdated
}

func (u *Updater) fail(log *slog.Logger, stage string, err error) Outcome {
	log.Error("embedding update failed", "stage", stage, "err", err)
	return OutcomeFailed
}

func failureStage(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, embeddings.ErrNoEmbedding) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return StageParse
	}
	return StageRequest
}
