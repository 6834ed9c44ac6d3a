package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/harvest/domain/ingest"
)

func TestParseSeed(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://example.com", "https://example.com/"},
		{"example.com/docs", "https://example.com/docs"},
		{"  http://Example.com/a#x ", "http://example.com/a"},
	}
	for _, tt := range tests {
		u, err := ParseSeed(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, u.String())
	}
}

func TestParseSeed_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "ftp://example.com", "https://", "http://[::1%zz/"} {
		_, err := ParseSeed(input)
		require.Error(t, err, input)
		assert.ErrorIs(t, err, ErrInvalidSeed)
		assert.ErrorIs(t, err, ingest.ErrCrawl)
	}
}

func TestSeedHost(t *testing.T) {
	host, err := SeedHost("https://Docs.Example.com:8080/start")
	require.NoError(t, err)
	assert.Equal(t, "docs.example.com", host)
}
