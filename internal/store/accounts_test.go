package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountStoreCreateContainsRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.log")
	s, err := OpenAccountStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Create("alice"))
	require.NoError(t, s.Create("bob"))
	assert.True(t, s.Contains("alice"))
	assert.True(t, s.Contains("bob"))

	require.NoError(t, s.Remove("alice"))
	assert.False(t, s.Contains("alice"))
	assert.True(t, s.Contains("bob"))
}

func TestAccountStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.log")
	s, err := OpenAccountStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Create("alice"))
	require.NoError(t, s.Create("bob"))
	require.NoError(t, s.Remove("alice"))

	reopened, err := OpenAccountStore(path)
	require.NoError(t, err)
	assert.False(t, reopened.Contains("alice"))
	assert.True(t, reopened.Contains("bob"))
}

func TestSearchAnchoredPrefixCaseInsensitive(t *testing.T) {
	accounts := []string{"alice", "Alan", "bob", "alexandra"}
	matches, err := Search(accounts, "al")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "Alan", "alexandra"}, matches)
}

func TestSearchMalformedPatternErrors(t *testing.T) {
	_, err := Search([]string{"alice"}, "[")
	assert.Error(t, err)
}

func TestSearchDoesNotRequireFullMatch(t *testing.T) {
	// re.match semantics: a prefix match is enough, unlike re.fullmatch.
	matches, err := Search([]string{"alice123"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice123"}, matches)
}
