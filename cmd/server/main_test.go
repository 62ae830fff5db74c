package main

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGinMode(t *testing.T) {
	assert.Equal(t, gin.ReleaseMode, ginMode("production"))
	assert.Equal(t, gin.ReleaseMode, ginMode("release"))
	assert.Equal(t, gin.TestMode, ginMode("test"))
	assert.Equal(t, gin.DebugMode, ginMode("development"))
	assert.Equal(t, gin.DebugMode, ginMode(""))
}

func TestCommands(t *testing.T) {
	assert.Equal(t, "serve", serveCommand().Use)
	assert.Equal(t, "migrate", migrateCommand().Use)
	assert.Equal(t, "version", versionCommand().Use)
}
