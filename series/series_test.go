package series_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "keyscope/series"
)

func TestStoreDiscoversChannelsLazily(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.Channels())
	assert.False(t, s.Has(66))

	s.Append(66, 0.1, 4000)
	s.Append(65, 0.1, 3900)
	s.Append(66, 0.2, 3800)

	assert.Equal(t, []uint8{65, 66}, s.Channels())
	assert.Equal(t, []uint8{66, 65}, s.Discovered())
	assert.Equal(t, 2, s.Len(66))
	assert.Equal(t, []Sample{{Time: 0.1, Value: 4000}, {Time: 0.2, Value: 3800}}, s.Samples(66))
}

func TestStoreMissing(t *testing.T) {
	s := NewStore()
	assert.Equal(t, 0, s.MarkAllMissing(0))

	s.Append(1, 0, 10)
	s.Append(2, 0, 20)
	assert.Equal(t, 2, s.MarkAllMissing(0.5))
	s.Append(1, 1, 11)

	assert.Equal(t, 2, s.Present(1))
	assert.Equal(t, 1, s.MissingCount(1))
	assert.Equal(t, 1, s.Present(2))
	assert.Equal(t, 1, s.MissingCount(2))
	assert.True(t, s.Samples(2)[1].Missing)
	assert.Equal(t, 3, s.MaxLen())
}
