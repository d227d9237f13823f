package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPayload(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "bare array", body: ` [{"_id":"a"}]`, expected: `[{"_id":"a"}]`},
		{name: "wrapped", body: `{"success":true,"books":[{"_id":"a"}]}`, expected: `[{"_id":"a"}]`},
		{name: "no array", body: `{"message":"none"}`, expected: `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.expected, string(ListPayload([]byte(tt.body))))
		})
	}
}

func TestResponse_DecodeRecord(t *testing.T) {
	type rec struct {
		ID    string `json:"_id"`
		Title string `json:"title"`
	}

	for _, body := range []string{
		`{"_id":"b1","title":"T"}`,
		`{"book":{"_id":"b1","title":"T"}}`,
		`{"success":true,"data":{"_id":"b1","title":"T"}}`,
	} {
		var got rec
		require.NoError(t, (&Response{StatusCode: 200, Body: []byte(body)}).DecodeRecord(&got), body)
		assert.Equal(t, rec{ID: "b1", Title: "T"}, got, body)
	}
}
