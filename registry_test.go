package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionLessComparesDottedComponents(t *testing.T) {
	assert.True(t, versionLess("2.6", "3.0"))
	assert.True(t, versionLess("2.6", "2.8"))
	assert.False(t, versionLess("3.2", "3.0"))
	assert.False(t, versionLess("3.0", "3.0"))
}

func TestVersionLessTreatsLatestAsNewest(t *testing.T) {
	assert.False(t, versionLess("latest", "3.0"))
	assert.False(t, versionLess("LATEST", "99.99"))
	assert.True(t, versionLess("2.6", "latest"))
}

func TestLookupCommandAcceptsLatest(t *testing.T) {
	entry, err := lookupCommand("latest", "CLUSTER SLOTS")
	require.NoError(t, err)
	assert.NotNil(t, entry.build)
}

func TestLookupCommandRejectsUnknownName(t *testing.T) {
	_, err := lookupCommand("latest", "NOPE")
	require.Error(t, err)
}
