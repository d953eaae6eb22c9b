package origin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompilePatternsSkipsInvalid(t *testing.T) {
	compiled := CompilePatterns([]string{`^https://app\.example\.com$`, `([`, `localhost`})
	assert.Len(t, compiled, 2)
}

func TestIsAllowed(t *testing.T) {
	compiled := CompilePatterns([]string{`^https://app\.example\.com$`, `^http://localhost(:\d+)?$`})

	assert.True(t, IsAllowed("https://app.example.com", compiled))
	assert.True(t, IsAllowed("http://localhost:5173", compiled))
	assert.False(t, IsAllowed("https://evil.example.com", compiled))

	// An empty pattern set allows everything.
	assert.True(t, IsAllowed("https://anything", nil))
}
