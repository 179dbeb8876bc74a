package cli

import (
	"context"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// Clipboard seams over github.com/atotto/clipboard.
var (
	clipboardUnsupported = func() bool { return clipboard.Unsupported }
	clipboardWrite       = clipboard.WriteAll
	clipboardRead        = clipboard.ReadAll
)

// clipboardGuard remembers the last secret put on the clipboard and clears
// it once the timer fires, unless the user copied something else meanwhile.
type clipboardGuard struct {
	mu     sync.Mutex
	timer  *time.Timer
	secret string
}

// copyToClipboard puts secret on the clipboard. It reports false when no
// clipboard is available or the write failed.
func (a *App) copyToClipboard(ctx context.Context, secret string) bool {
	if clipboardUnsupported() {
		return false
	}
	if err := clipboardWrite(secret); err != nil {
		a.logger.Warn(ctx, "clipboard unavailable", "error", err)
		return false
	}

	g := &a.clip
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.secret = secret

	if t := a.config.ClipboardClearTimeout; t > 0 {
		g.timer = time.AfterFunc(t, func() { a.clearClipboard(context.Background()) })
	}
	return true
}

// clearClipboard empties the clipboard if it still holds the copied secret.
func (a *App) clearClipboard(ctx context.Context) {
	g := &a.clip
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	if g.secret == "" {
		return
	}

	current, err := clipboardRead()
	if err == nil && current == g.secret {
		if err := clipboardWrite(""); err != nil {
			a.logger.Warn(ctx, "failed to clear clipboard", "error", err)
		}
	}
	g.secret = ""
}
