package ticks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSeconds(t *testing.T) {
	tests := []struct {
		name     string
		ticks    int64
		expected int64
	}{
		{name: "zero", ticks: 0, expected: 0},
		{name: "negative", ticks: -5, expected: 0},
		{name: "three minutes", ticks: 1_800_000_000, expected: 180},
		{name: "floors partial seconds", ticks: 19_999_999, expected: 1},
		{name: "below one second", ticks: 9_999_999, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToSeconds(tt.ticks))
		})
	}
}

func TestPtrToSeconds(t *testing.T) {
	v := int64(650_000_000)
	assert.Equal(t, int64(65), PtrToSeconds(&v))
	assert.Equal(t, int64(0), PtrToSeconds(nil))
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		name     string
		sec      float64
		expected string
	}{
		{name: "zero", sec: 0, expected: "0:00"},
		{name: "one minute five", sec: 65, expected: "1:05"},
		{name: "just under an hour", sec: 3599, expected: "59:59"},
		{name: "over an hour keeps counting minutes", sec: 3725, expected: "62:05"},
		{name: "fractional seconds floor", sec: 59.9, expected: "0:59"},
		{name: "negative", sec: -1, expected: "0:00"},
		{name: "NaN", sec: math.NaN(), expected: "0:00"},
		{name: "infinity", sec: math.Inf(1), expected: "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSeconds(tt.sec))
		})
	}
}

func TestFormat(t *testing.T) {
	v := int64(1_800_000_000)
	assert.Equal(t, "3:00", Format(&v))
	assert.Equal(t, "0:00", Format(nil))
}
