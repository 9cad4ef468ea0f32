package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecode(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("64b7f0c2a1e4d3b2c1a09f8e")
	require.NoError(t, err)

	tests := []struct {
		name      string
		body      string
		wantID    any
		wantText  string
		wantOp    string
		wantError bool
	}{
		{
			name:     "plain string id",
			body:     `{"fullDocument": {"_id": "post-1", "subreddit": "science", "title": "hello"}}`,
			wantID:   "post-1",
			wantText: "science:hello",
		},
		{
			name:     "extended json object id",
			body:     `{"operationType": "insert", "fullDocument": {"_id": {"$oid": "64b7f0c2a1e4d3b2c1a09f8e"}, "subreddit": "golang", "title": "generics"}}`,
			wantID:   oid,
			wantText: "golang:generics",
			wantOp:   "insert",
		},
		{
			name:     "extra fields are ignored",
			body:     `{"fullDocument": {"_id": "post-2", "subreddit": "news", "title": "t", "ups": 10, "nsfw": false}, "ns": {"db": "redditData"}}`,
			wantID:   "post-2",
			wantText: "news:t",
		},
		{
			name:     "missing fields degrade the text",
			body:     `{"fullDocument": {"_id": "post-3", "title": "hello"}}`,
			wantID:   "post-3",
			wantText: ":hello",
		},
		{
			name:      "not json",
			body:      `not json`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.body))
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, ev.FullDocument.ID)
			assert.Equal(t, tt.wantText, ev.FullDocument.Text())
			assert.Equal(t, tt.wantOp, ev.OperationType)
		})
	}
}

func TestMissing(t *testing.T) {
	assert.Empty(t, Document{Subreddit: "a", Title: "b"}.Missing())
	assert.Equal(t, []string{"title"}, Document{Subreddit: "a"}.Missing())
	assert.Equal(t, []string{"subreddit", "title"}, Document{}.Missing())
}

func TestIDString(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("64b7f0c2a1e4d3b2c1a09f8e")
	require.NoError(t, err)

	assert.Equal(t, "", IDString(nil))
	assert.Equal(t, "abc", IDString("abc"))
	assert.Equal(t, "64b7f0c2a1e4d3b2c1a09f8e", IDString(oid))
	assert.Equal(t, "42", IDString(int32(42)))
	assert.Equal(t, "64b7f0c2a1e4d3b2c1a09f8e", Document{ID: oid}.IDString())
}
