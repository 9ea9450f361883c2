package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeatLimitFor(t *testing.T) {
	assert.Equal(t, uint32(50), SeatLimitFor("Premium"))
	assert.Equal(t, uint32(100), SeatLimitFor("Standard"))
	assert.Equal(t, uint32(150), SeatLimitFor("Economy"))
}

func TestSeatLimitForUnknownName(t *testing.T) {
	// Unknown names fall back to zero capacity rather than failing the
	// request; a typo like "VIP" produces a tier nobody can book.
	assert.Equal(t, uint32(0), SeatLimitFor("VIP"))
	assert.Equal(t, uint32(0), SeatLimitFor(""))
	// Lookup is case sensitive, same as the stored names.
	assert.Equal(t, uint32(0), SeatLimitFor("premium"))
}
