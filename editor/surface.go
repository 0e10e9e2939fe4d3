package editor

import (
	"context"

	"github.com/inkwell-editor/inkwell/docsync"
)

// Surface is the boundary to an embedded rich-text editing engine. The sync
// engine never inspects the editor's internal document model, only this
// HTML contract.
type Surface interface {
	// GetContent returns the surface's current HTML payload.
	GetContent(ctx context.Context) (string, error)

	// SetContent replaces the surface's document. resetHistory clears the
	// editor's undo stack, used when a different file is opened.
	SetContent(ctx context.Context, html string, resetHistory bool) error

	// Changes delivers the current content on every mutation. The channel
	// closes when the surface shuts down.
	Changes() <-chan string

	Close() error
}

// Bind forwards the surface's change notifications into the sync engine's
// dirty tracking. Blocks until ctx is cancelled or the surface closes.
func Bind(ctx context.Context, s Surface, engine *docsync.Engine) {
	for {
		select {
		case <-ctx.Done():
			return
		case html, ok := <-s.Changes():
			if !ok {
				return
			}
			engine.UpdateContent(html)
		}
	}
}
