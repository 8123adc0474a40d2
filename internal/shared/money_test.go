package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{266666.666666, 266666.67},
		{266666.664, 266666.66},
		{0, 0},
		{-0.005, -0.01},
		{1050000, 1050000},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, Round2(tc.in), 0.0001, "in=%v", tc.in)
	}
}
