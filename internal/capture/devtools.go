package capture

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// DevToolsActivePortFile is written by Chrome into its user data directory
// when it runs with --remote-debugging-port.
const DevToolsActivePortFile = "DevToolsActivePort"

// ChromeUserDataDir returns the default Chrome user data directory for the current OS.
func ChromeUserDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	var userDataDir string
	switch runtime.GOOS {
	case "darwin":
		userDataDir = filepath.Join(homeDir, "Library", "Application Support", "Google", "Chrome")
	case "linux":
		userDataDir = filepath.Join(homeDir, ".config", "google-chrome")
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		userDataDir = filepath.Join(localAppData, "Google", "Chrome", "User Data")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if _, err := os.Stat(userDataDir); os.IsNotExist(err) {
		return "", fmt.Errorf("Chrome user data directory not found at %s", userDataDir)
	}

	return userDataDir, nil
}

// DiscoverDevToolsURL reads DevToolsActivePort from userDataDir and returns
// the browser-level DevTools WebSocket URL. An empty userDataDir means the
// OS default directory.
func DiscoverDevToolsURL(userDataDir string) (string, error) {
	if userDataDir == "" {
		dir, err := ChromeUserDataDir()
		if err != nil {
			return "", err
		}
		userDataDir = dir
	}

	portFile := filepath.Join(userDataDir, DevToolsActivePortFile)
	f, err := os.Open(portFile)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%s not found in %s: start Chrome with --remote-debugging-port=9222 or pass --cdp-url", DevToolsActivePortFile, userDataDir)
	}
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", portFile, err)
	}
	defer f.Close()

	return parseDevToolsActivePort(bufio.NewScanner(f))
}

// parseDevToolsActivePort expects the port on the first line and the
// browser target path on the second.
func parseDevToolsActivePort(sc *bufio.Scanner) (string, error) {
	var lines []string
	for len(lines) < 2 && sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", DevToolsActivePortFile, err)
	}
	if len(lines) < 2 {
		return "", fmt.Errorf("malformed %s: expected port and path", DevToolsActivePortFile)
	}

	port, err := strconv.Atoi(lines[0])
	if err != nil || port <= 0 || port > 65535 {
		return "", fmt.Errorf("malformed %s: invalid port %q", DevToolsActivePortFile, lines[0])
	}
	path := lines[1]
	if !strings.HasPrefix(path, "/devtools/browser/") {
		return "", fmt.Errorf("malformed %s: unexpected path %q", DevToolsActivePortFile, path)
	}

	return fmt.Sprintf("ws://127.0.0.1:%d%s", port, path), nil
}
