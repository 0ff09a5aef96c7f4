// +build unit

package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTag(t *testing.T) {
	cases := []struct {
		branch   string
		Expected string
	}{
		{"main", "stable"},
		{"feature-x", "feature-x"},
		{"dev", "dev"},
		{"ci-123", "ci-123"},
		{"v1.2.3", "v1.2.3"},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s", tc.branch), func(t *testing.T) {
			assert.Equal(t, tc.Expected, DeriveTag(tc.branch))
		})
	}
}

func TestIsReleaseMarker(t *testing.T) {
	cases := []struct {
		tag      string
		Expected bool
	}{
		{"stable", true},
		{"ci-123", true},
		{"ci-", true},
		{"v1.2.3", true},
		{"feature-x", false},
		{"dev", false},
		{"stable-ish", false},
		{"v1.2", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s, %t", tc.tag, tc.Expected), func(t *testing.T) {
			assert.Equal(t, tc.Expected, IsReleaseMarker(tc.tag))
		})
	}
}

func TestIsTagReleaseFormat(t *testing.T) {
	cases := []struct {
		tag      string
		Expected bool
	}{
		{"a0.0.1", false},
		{"v0.0.1", true},
		{"v0.0.11", true},
		{"v0.0.111", true},
		{"v0.0.11a", false},
		{"v0.0.1111", false},
		{"v999.999.999", true},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s, %t", tc.tag, tc.Expected), func(t *testing.T) {
			assert.Equal(t, tc.Expected, IsTagReleaseFormat(tc.tag))
		})
	}
}

func TestIsTagSHAFormat(t *testing.T) {
	cases := []struct {
		tag      string
		Expected bool
	}{
		{"0123456789abcdef0123456789abcdef01234567", true},
		{"stable", false},
		{"0123456789abcdef0123456789abcdef0123456", false},
	}
	for _, tc := range cases {
		t.Run(tc.tag, func(t *testing.T) {
			assert.Equal(t, tc.Expected, IsTagSHAFormat(tc.tag))
		})
	}
}

func TestFilterReleaseTags(t *testing.T) {
	tags := []string{"v0.0.1", "stable", "ci-123", "v1.2.3", "feature-x"}
	assert.Equal(t, []string{"v0.0.1", "v1.2.3"}, FilterReleaseTags(tags))
	assert.Equal(t, []string{}, FilterReleaseTags(nil))
}

func TestAuthStringRoundTrip(t *testing.T) {
	encoded := EncodeAuthString("testuser", "p4ss:w0rd")
	username, password, err := DecodeAuthString(encoded)
	assert.NoError(t, err)
	assert.Equal(t, "testuser", username)
	assert.Equal(t, "p4ss:w0rd", password)

	_, _, err = DecodeAuthString("not-base64!")
	assert.Error(t, err)

	_, _, err = DecodeAuthString(EncodeAuthString("nopassword", "")[:8])
	assert.Error(t, err)
}

func TestConstructImageName(t *testing.T) {
	assert.Equal(t,
		"registry.example.com/acme/widget:stable",
		ConstructImageName("registry.example.com", "acme", "widget", "stable"))
}
