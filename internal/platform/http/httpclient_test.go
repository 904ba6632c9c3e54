package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{name: "explicit timeout", timeout: 3 * time.Second, want: 3 * time.Second},
		{name: "zero falls back to default", timeout: 0, want: 10 * time.Second},
		{name: "negative falls back to default", timeout: -time.Second, want: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewHTTPClient(tt.timeout)
			assert.Equal(t, tt.want, c.Timeout)

			tr, ok := c.Transport.(*http.Transport)
			require.True(t, ok)
			assert.Equal(t, tt.want, tr.ResponseHeaderTimeout)
			assert.Equal(t, 16, tr.MaxIdleConnsPerHost)
		})
	}
}
