package ioutil

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

func TestReadLimited(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		limit int64
		want  string
	}{
		{name: "error body", body: `{"error":"invalid_grant"}`, limit: 512, want: `{"error":"invalid_grant"}`},
		{name: "truncated", body: "upstream exploded", limit: 8, want: "upstream"},
		{name: "trailing newline trimmed", body: "Bad Gateway\n", limit: 512, want: "Bad Gateway"},
		{name: "empty", body: "", limit: 512, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadLimited(strings.NewReader(tt.body), tt.limit))
		})
	}

	t.Run("read error", func(t *testing.T) {
		r := &failingReader{err: errors.New("connection reset")}
		assert.Equal(t, "<unreadable: connection reset>", ReadLimited(r, 1024))
	})
}
