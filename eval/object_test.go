package eval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoercions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		obj     Object
		boolean bool
		number  float64
		str     string
	}{
		{name: "true", obj: Boolean(true), boolean: true, number: 1, str: "true"},
		{name: "false", obj: Boolean(false), boolean: false, number: 0, str: "false"},
		{name: "integer", obj: Number(3), boolean: true, number: 3, str: "3"},
		{name: "fraction", obj: Number(0.25), boolean: true, number: 0.25, str: "0.25"},
		{name: "zero", obj: Number(0), boolean: false, number: 0, str: "0"},
		{name: "numeric string", obj: String(" 42 "), boolean: true, number: 42, str: " 42 "},
		{name: "empty string", obj: String(""), boolean: false, number: math.NaN(), str: ""},
		{name: "empty set", obj: &NodeSet{}, boolean: false, number: math.NaN(), str: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.boolean, tt.obj.AsBoolean())
			assert.Equal(t, tt.str, tt.obj.AsString())
			if math.IsNaN(tt.number) {
				assert.True(t, math.IsNaN(tt.obj.AsNumber()))
			} else {
				assert.Equal(t, tt.number, tt.obj.AsNumber())
			}
		})
	}
}

func TestNaNIsFalse(t *testing.T) {
	t.Parallel()
	assert.False(t, Number(math.NaN()).AsBoolean())
	assert.Equal(t, "NaN", Number(math.NaN()).AsString())
	assert.Equal(t, "-Infinity", Number(math.Inf(-1)).AsString())
}
