package main

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	greeter "github.com/wippyai/ffi-greeter"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{42, 58, 100},
		{-1, 1, 0},
		{math.MaxInt64, 1, math.MinInt64},
		{math.MinInt64, -1, math.MaxInt64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, add(tt.a, tt.b), "add(%d, %d)", tt.a, tt.b)
	}
}

func TestGreetingBytes(t *testing.T) {
	b := greetingBytes()
	assert.Equal(t, len(greeter.Greeting)+1, len(b))
	assert.Equal(t, byte(0), b[len(b)-1])
	assert.Equal(t, len(greeter.Greeting), bytes.IndexByte(b, 0), "no interior NUL")
	assert.Equal(t, greeter.Greeting, string(b[:len(b)-1]))

	// each call is an independent buffer
	b[0] = 'J'
	assert.Equal(t, byte('H'), greetingBytes()[0])
}
