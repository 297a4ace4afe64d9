package renderer

import (
	"context"
	"strings"

	"github.com/recollectlabs/recollect/internal/plugin"
)

// String renders any plugin instance through a text renderer into an
// in-memory buffer and returns the text.
func String(ctx context.Context, cmd plugin.Command) (string, error) {
	var buf strings.Builder
	text := NewText(&buf)
	if err := cmd.Render(ctx, text); err != nil {
		return "", err
	}
	if err := text.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
