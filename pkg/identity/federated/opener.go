package federated

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// Opener presents the authorization URL to the user.
type Opener func(authURL string) error

// PrintOpener writes the URL to w for the user to open manually.
func PrintOpener(w io.Writer) Opener {
	return func(authURL string) error {
		_, err := fmt.Fprintf(w, "Open this link to sign in:\n\n  %s\n\n", authURL)
		return err
	}
}

// BrowserOpener launches the system browser and also prints the URL to w
// (stderr when nil) in case no browser is available.
func BrowserOpener(w io.Writer) Opener {
	if w == nil {
		w = os.Stderr
	}
	show := PrintOpener(w)

	return func(authURL string) error {
		if err := show(authURL); err != nil {
			return err
		}

		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", authURL)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", authURL)
		default:
			cmd = exec.Command("xdg-open", authURL)
		}
		// The printed link is enough when no browser can be launched.
		_, _ = startDetached(cmd)
		return nil
	}
}

// startDetached starts cmd and reaps it in the background. The returned
// channel yields the exit result.
func startDetached(cmd *exec.Cmd) (<-chan error, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	return done, nil
}
