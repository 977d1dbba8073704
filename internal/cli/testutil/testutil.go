// Package testutil holds helpers for asserting on rendered CLI output.
package testutil

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/anops/internal/cli/output"
)

// Capture is a Renderer whose streams are kept in memory.
type Capture struct {
	*output.Renderer
	Stdout bytes.Buffer
	Stderr bytes.Buffer
}

// NewCapture returns a Capture rendering in mode. tty selects whether the
// renderer styles output as it would for a terminal.
func NewCapture(mode output.Mode, tty bool) *Capture {
	c := &Capture{}
	c.Renderer = output.NewRendererWithTTY(&c.Stdout, &c.Stderr, tty, mode)
	return c
}

var escapeSeq = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// AssertPlain fails when s carries terminal escape sequences.
func AssertPlain(t *testing.T, s string) {
	t.Helper()
	assert.False(t, escapeSeq.MatchString(s), "unexpected escape sequence in %q", s)
}

// AssertMarkdown checks that fences are balanced and no heading is empty.
func AssertMarkdown(t *testing.T, md string) {
	t.Helper()
	assert.Zero(t, strings.Count(md, "```")%2, "unbalanced code fences")
	for i, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			assert.NotEmpty(t, strings.TrimLeft(line, "# "), "empty heading on line %d", i+1)
		}
	}
}
