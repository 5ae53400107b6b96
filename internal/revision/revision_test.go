package revision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Shape(t *testing.T) {
	rev := New()
	assert.True(t, strings.HasPrefix(rev, "1-"))
	assert.Len(t, rev, 2+32)
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		rev := New()
		assert.False(t, seen[rev], "duplicate revision %s", rev)
		seen[rev] = true
	}
}

func TestMatch(t *testing.T) {
	assert.True(t, Match("1-abc", "1-abc"))
	assert.False(t, Match("1-abc", "1-abd"))
	assert.False(t, Match("", "1-abc"))
	// No semantic comparison: a different generation marker is a different revision.
	assert.False(t, Match("2-abc", "1-abc"))
}

func TestComposeID(t *testing.T) {
	assert.Equal(t, "user:42", ComposeID("user", "42", false))
	assert.Equal(t, "groups", ComposeID("groups", "ignored", true))
}

func TestSplitID(t *testing.T) {
	prefix, key := SplitID("user:42")
	assert.Equal(t, "user", prefix)
	assert.Equal(t, "42", key)

	// Keys may contain the separator; only the first one is structural.
	prefix, key = SplitID("session:2021:10:20")
	assert.Equal(t, "session", prefix)
	assert.Equal(t, "2021:10:20", key)

	// Singleton ids have no key.
	prefix, key = SplitID("groups")
	assert.Equal(t, "groups", prefix)
	assert.Equal(t, "", key)
}
