package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamFromKey(t *testing.T) {
	tests := []struct {
		key, prefix string
		want        string
		ok          bool
	}{
		{"checkpoints/tickets.ckpt", "checkpoints/", "tickets", true},
		{"tickets.ckpt", "", "tickets", true},
		{"checkpoints/nested/tickets.ckpt", "checkpoints/", "", false},
		{"checkpoints/tickets.json", "checkpoints/", "", false},
		{"other/tickets.ckpt", "checkpoints/", "", false},
		{"checkpoints/.ckpt", "checkpoints/", "", false},
	}
	for _, tt := range tests {
		got, ok := streamFromKey(tt.key, tt.prefix)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}
}
