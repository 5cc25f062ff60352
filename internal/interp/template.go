package interp

import (
	"context"
	"strings"
)

// TemplateCompleter is the offline fallback: it echoes the prompt's
// subject line and reference material into plain text instead of calling a
// model. Output is deterministic for a given prompt, which also makes it
// the completer of choice in tests.
type TemplateCompleter struct{}

// Verify interface implementation at compile time.
var _ Completer = (*TemplateCompleter)(nil)

// NewTemplateCompleter creates the offline completer.
func NewTemplateCompleter() *TemplateCompleter {
	return &TemplateCompleter{}
}

// Complete renders the prompt into deterministic interpretation text.
func (c *TemplateCompleter) Complete(_ context.Context, prompt string) (string, error) {
	lines := strings.Split(strings.TrimSpace(prompt), "\n")

	var b strings.Builder
	if len(lines) > 0 {
		b.WriteString(lines[0])
	}
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Reference material:") {
			continue
		}
		b.WriteString(" ")
		b.WriteString(strings.TrimPrefix(line, "- "))
	}
	return b.String(), nil
}
