// Package event models the database change events that drive the embedder.
package event

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChangeEvent is a change notification carrying a snapshot of the document at trigger time.
type ChangeEvent struct {
	OperationType string   `bson:"operationType,omitempty"`
	FullDocument  Document `bson:"fullDocument"`
}

// Document holds the fields of a reddit post the embedder reads.
// ID is opaque and passed back to the store unchanged.
type Document struct {
	ID        any    `bson:"_id"`
	Subreddit string `bson:"subreddit"`
	Title     string `bson:"title"`
}

// Decode parses a change event from MongoDB Extended JSON. Plain JSON is valid
// relaxed Extended JSON, so {"_id": "abc"} and {"_id": {"$oid": "..."}} both work.
func Decode(data []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := bson.UnmarshalExtJSON(data, false, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	return ev, nil
}

// Text is the embedding input: "<subreddit>:<title>".
func (d Document) Text() string {
	return d.Subreddit + ":" + d.Title
}

// Missing lists the text fields that are empty.
func (d Document) Missing() []string {
	var missing []string
	if d.Subreddit == "" {
		missing = append(missing, "subreddit")
	}
	if d.Title == "" {
		missing = append(missing, "title")
	}
	return missing
}

// IDString renders the document id for logs and for stores keyed by text.
func (d Document) IDString() string {
	return IDString(d.ID)
}

// IDString renders an opaque document id as text.
func IDString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case primitive.ObjectID:
		return v.Hex()
	default:
		return fmt.Sprint(v)
	}
}
