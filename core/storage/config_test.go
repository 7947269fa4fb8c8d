package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Host(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"localhost:9000", "localhost:9000"},
		{"http://localhost:9000", "localhost:9000"},
		{"https://s3.amazonaws.com", "s3.amazonaws.com"},
		{"http://", "http://"},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, Config{Endpoint: tt.endpoint}.host())
		})
	}
}

func TestConfig_Timeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, Config{}.timeout())
	assert.Equal(t, 5*time.Second, Config{Timeout: 5 * time.Second}.timeout())

	tr := newTransport(5 * time.Second)
	assert.Equal(t, 5*time.Second, tr.TLSHandshakeTimeout)
	assert.Equal(t, 5*time.Second, tr.ResponseHeaderTimeout)
}
