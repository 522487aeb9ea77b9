package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDataDir(t *testing.T) {
	assert.Equal(t, "/env/dir", resolveDataDir("/env/dir", "/cfg/dir"), "env overrides config")
	assert.Equal(t, "/cfg/dir", resolveDataDir("", "/cfg/dir"), "config applies when env is unset")
	assert.Equal(t, ".", resolveDataDir("", ""))
}
