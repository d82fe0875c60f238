// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		envSet   bool
		want     string
	}{
		{name: "environment variable set", envValue: "from-env", envSet: true, want: "from-env"},
		{name: "environment variable not set", want: "default"},
		{name: "environment variable empty string", envValue: "", envSet: true, want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "BACKSERV_TEST_STRING"
			if tt.envSet {
				t.Setenv(key, tt.envValue)
			}
			assert.Equal(t, tt.want, ParseString(key, "default"))
		})
	}
}

func TestParseString_SensitiveValueStillReturned(t *testing.T) {
	t.Setenv("BACKSERV_TEST_PASSWORD", "secret123")
	assert.Equal(t, "secret123", ParseString("BACKSERV_TEST_PASSWORD", ""))
}

func TestParseInt(t *testing.T) {
	t.Setenv("BACKSERV_TEST_INT", "42")
	assert.Equal(t, 42, ParseInt("BACKSERV_TEST_INT", 7))

	t.Setenv("BACKSERV_TEST_INT", "forty-two")
	assert.Equal(t, 7, ParseInt("BACKSERV_TEST_INT", 7), "invalid value falls back to default")

	assert.Equal(t, 7, ParseInt("BACKSERV_TEST_INT_UNSET", 7))
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "1", "yes", "TRUE"} {
		t.Setenv("BACKSERV_TEST_BOOL", v)
		assert.True(t, ParseBool("BACKSERV_TEST_BOOL", false), v)
	}
	for _, v := range []string{"false", "0", "no"} {
		t.Setenv("BACKSERV_TEST_BOOL", v)
		assert.False(t, ParseBool("BACKSERV_TEST_BOOL", true), v)
	}
	t.Setenv("BACKSERV_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("BACKSERV_TEST_BOOL", true))
}

func TestParseDuration(t *testing.T) {
	t.Setenv("BACKSERV_TEST_DUR", "250ms")
	assert.Equal(t, 250*time.Millisecond, ParseDuration("BACKSERV_TEST_DUR", time.Second))

	t.Setenv("BACKSERV_TEST_DUR", "soon")
	assert.Equal(t, time.Second, ParseDuration("BACKSERV_TEST_DUR", time.Second))
}

func TestParseFloat(t *testing.T) {
	t.Setenv("BACKSERV_TEST_FLOAT", "0.25")
	assert.InDelta(t, 0.25, ParseFloat("BACKSERV_TEST_FLOAT", 1), 1e-9)

	t.Setenv("BACKSERV_TEST_FLOAT", "x")
	assert.InDelta(t, 1.0, ParseFloat("BACKSERV_TEST_FLOAT", 1), 1e-9)
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"/a", "/b"}, splitCSV(" /a , ,/b "))
	assert.Nil(t, splitCSV(""))
}
