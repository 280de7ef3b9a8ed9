package embed_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/beaconhq/beacon/pkg/embed"
)

func TestTruncateLength(t *testing.T) {
	long := strings.Repeat("a", 10000)

	got := embed.Truncate(long, 8192)
	assert.Equal(t, 8192, utf8.RuneCountInString(got))
}

func TestTruncateShortInputUnchanged(t *testing.T) {
	assert.Equal(t, "short", embed.Truncate("short", 8192))
	assert.Equal(t, "", embed.Truncate("", 8192))
}

func TestTruncateDeterministic(t *testing.T) {
	long := strings.Repeat("the same input text. ", 1000)

	a := embed.Truncate(long, 512)
	b := embed.Truncate(long, 512)
	assert.Equal(t, a, b)
	assert.Equal(t, 512, utf8.RuneCountInString(a))
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("héllo wörld ", 1000)

	got := embed.Truncate(long, 100)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 100, utf8.RuneCountInString(got))
}

func TestTruncateZeroMaxDisabled(t *testing.T) {
	assert.Equal(t, "unbounded", embed.Truncate("unbounded", 0))
}
