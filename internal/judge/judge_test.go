// internal/judge/judge_test.go
package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	v := ParseVerdict("CORRECT. Accuracy: 95. Good solution.")
	assert.True(t, v.Correct)
	assert.Equal(t, 95, v.Accuracy)
	assert.True(t, v.Graded)

	// INCORRECT ends in CORRECT; the longer prefix must win.
	v = ParseVerdict("INCORRECT. Accuracy: 40.")
	assert.False(t, v.Correct)
	assert.Equal(t, 40, v.Accuracy)

	v = ParseVerdict("correct accuracy: 80")
	assert.True(t, v.Correct, "prefix match is case-insensitive")
	assert.Equal(t, 80, v.Accuracy)

	v = ParseVerdict("CORRECT, well done")
	assert.True(t, v.Correct)
	assert.Zero(t, v.Accuracy, "missing accuracy defaults to zero")

	v = ParseVerdict("I cannot grade this")
	assert.False(t, v.Correct, "unparseable replies count as incorrect")
}

func TestUngraded(t *testing.T) {
	v := Ungraded()
	assert.False(t, v.Graded)
	assert.False(t, v.Correct)
	assert.Zero(t, v.Accuracy)
}

func TestClientGrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Contents)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "fizzbuzz")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "CORRECT\nAccuracy: 88"}},
				}},
			},
		})
	}))
	defer srv.Close()

	c := &Client{url: srv.URL, client: srv.Client()}
	v, err := c.Grade(context.Background(), "write fizzbuzz", "print(...)", "1 2 fizz")
	require.NoError(t, err)
	assert.True(t, v.Correct)
	assert.Equal(t, 88, v.Accuracy)
	assert.True(t, v.Graded)
}

func TestClientGradeUnconfigured(t *testing.T) {
	c := &Client{client: http.DefaultClient}
	_, err := c.Grade(context.Background(), "p", "s", "e")
	assert.Error(t, err)
}

func TestClientGradeEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := &Client{url: srv.URL, client: srv.Client()}
	_, err := c.Grade(context.Background(), "p", "s", "e")
	assert.Error(t, err)
}
