package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotOfWithinRange(t *testing.T) {
	keys := []string{"foo", "bar", "{tag}key", "", "a very long key with spaces"}
	for _, k := range keys {
		s := SlotOf([]byte(k))
		assert.Less(t, s, uint16(NumSlots), "key %q", k)
	}
}

func TestHashtagRouting(t *testing.T) {
	a := SlotOf([]byte("{user1000}.following"))
	b := SlotOf([]byte("{user1000}.followers"))
	c := SlotOf([]byte("user1000"))
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.Equal(t, uint16(3443), a)
}

func TestEmptyHashtagFallsBackToWholeKey(t *testing.T) {
	a := SlotOf([]byte("{}foo"))
	b := SlotOf([]byte("{}foo"))
	assert.Equal(t, a, b)
	// An empty {} hash tag does not co-locate with anything; it is hashed
	// as part of the whole key, same as having no braces at all.
	assert.NotEqual(t, SlotOf([]byte("foo")), a)
}

func TestNoHashtagHashesWholeKey(t *testing.T) {
	assert.Equal(t, crc16XModem([]byte("somekey"))%NumSlots, SlotOf([]byte("somekey")))
}

func TestUnbalancedHashtagHashesWholeKey(t *testing.T) {
	a := SlotOf([]byte("{unterminated"))
	b := crc16XModem([]byte("{unterminated")) % NumSlots
	assert.Equal(t, b, a)
}
