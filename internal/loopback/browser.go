package loopback

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
)

// OpenBrowser asks the operating system to open target in the default
// browser. It does not wait for the browser to exit.
func OpenBrowser(ctx context.Context, target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return errors.New("empty url")
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", target)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", target)
	}
	return cmd.Start()
}
