package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// OpenBrowser hands an http(s) URL, such as the Spotify consent page or a stored playlist link, to
// the system browser without waiting for it.
func OpenBrowser(rawURL string) error {
	name, args, err := browserCommand(runtime.GOOS, rawURL)
	if err != nil {
		return err
	}
	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// browserCommand returns the launcher for goos. URLs come from the database and the OAuth
// config, so anything other than http and https is refused.
func browserCommand(goos, rawURL string) (string, []string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", nil, fmt.Errorf("%w: not a web URL: %q", ErrInvalidArgument, rawURL)
	}

	switch goos {
	case "darwin":
		return "open", []string{rawURL}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{rawURL}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
