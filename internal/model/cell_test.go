package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBox(t *testing.T) {
	b := BoundingBox{West: -1, South: 2, East: 3, North: 6}

	assert.Equal(t, 4.0, b.Width())
	assert.Equal(t, 4.0, b.Height())
	lat, lon := b.Center()
	assert.Equal(t, 4.0, lat)
	assert.Equal(t, 1.0, lon)
	assert.Equal(t, [4]float64{-1, 2, 3, 6}, b.Array())
}

func TestGridLen_Nil(t *testing.T) {
	var g *Grid
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 2, (&Grid{Cells: make([]Cell, 2)}).Len())
}

func TestSampleSet_ValuesNotSerialized(t *testing.T) {
	data, err := json.Marshal(SampleSet{Values: []float64{0.5}, Source: "estimate"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "0.5")
	assert.Contains(t, string(data), `"source":"estimate"`)
}
