package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trendSample struct {
	Period string    `cbor:"1,keyasint"`
	Value  float64   `cbor:"2,keyasint"`
	At     time.Time `cbor:"3,keyasint"`
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Run("Struct", func(t *testing.T) {
		in := trendSample{Period: "7d", Value: 99.5, At: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

		data, err := Marshal(in)
		require.NoError(t, err)

		out, err := Unmarshal[trendSample](data)
		require.NoError(t, err)
		assert.Equal(t, in.Period, out.Period)
		assert.Equal(t, in.Value, out.Value)
		assert.True(t, in.At.Equal(out.At))
	})

	t.Run("Slice", func(t *testing.T) {
		in := []string{"7d", "30d", "90d"}

		data, err := Marshal(in)
		require.NoError(t, err)

		out, err := Unmarshal[[]string](data)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Map", func(t *testing.T) {
		in := map[string]int64{"orders": 42, "customers": 7}

		data, err := Marshal(in)
		require.NoError(t, err)

		out, err := Unmarshal[map[string]int64](data)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

func TestMarshalDeterministic(t *testing.T) {
	in := map[string]int{"b": 2, "a": 1, "c": 3}

	first, err := Marshal(in)
	require.NoError(t, err)

	second, err := Marshal(in)
	require.NoError(t, err)

	assert.Equal(t, first, second, "canonical encoding must be stable")
}

func TestMarshalUnsupportedType(t *testing.T) {
	_, err := Marshal(make(chan int))
	assert.Error(t, err)
}

func TestUnmarshalGarbage(t *testing.T) {
	_, err := Unmarshal[trendSample]([]byte("\xff\xfe"))
	assert.Error(t, err)
}
