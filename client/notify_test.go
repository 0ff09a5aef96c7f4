// +build unit

package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessMessageWithMarker(t *testing.T) {
	publication := Publication{
		RepositoryName: "testrepo",
		Branch:         "main",
		Tag:            "abc123",
		Marker:         "stable",
		MarkerApplied:  true,
		PushedRefs: []string{
			"localhost:5000/testprefix/testrepo:abc123",
			"localhost:5000/testprefix/testrepo:stable",
		},
	}
	assert.Equal(t,
		"Success: published `localhost:5000/testprefix/testrepo:abc123` (marker: `stable`)",
		successMessage(&publication))
}

func TestSuccessMessageWithoutMarker(t *testing.T) {
	publication := Publication{
		RepositoryName: "testrepo",
		Branch:         "dev",
		Tag:            "def456",
		PushedRefs:     []string{"localhost:5000/testprefix/testrepo:def456"},
	}
	msg := successMessage(&publication)
	assert.Equal(t, "Success: published `localhost:5000/testprefix/testrepo:def456`", msg)
	assert.NotContains(t, msg, "marker")
}
