// Package update checks GitHub for newer stockscan releases and works out how
// the running binary was installed.
package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"
)

// LatestReleaseURL is the GitHub API endpoint for the newest release.
var LatestReleaseURL = "https://api.github.com/repos/stockscan/cli/releases/latest"

// InstallMethod is how the binary was installed.
type InstallMethod string

const (
	InstallMethodBrew    InstallMethod = "brew"
	InstallMethodGo      InstallMethod = "go"
	InstallMethodUnknown InstallMethod = "unknown"
)

// FetchLatest returns the latest release tag and its HTML URL.
func FetchLatest(ctx context.Context) (tag, url string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, LatestReleaseURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("release request failed: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", err
	}
	tag = gjson.GetBytes(body, "tag_name").String()
	if tag == "" {
		return "", "", fmt.Errorf("release response has no tag_name")
	}
	return tag, gjson.GetBytes(body, "html_url").String(), nil
}

// IsNewerVersion reports whether latest is a higher semantic version than current.
func IsNewerVersion(current, latest string) (bool, error) {
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("invalid current version %q: %w", current, err)
	}
	lat, err := semver.NewVersion(latest)
	if err != nil {
		return false, fmt.Errorf("invalid latest version %q: %w", latest, err)
	}
	return lat.GreaterThan(cur), nil
}

type installRule struct {
	method InstallMethod
	check  func(path string) bool
}

func installMethodRules() []installRule {
	return []installRule{
		{InstallMethodBrew, pathMatchesHomebrew},
		{InstallMethodGo, pathMatchesGoBin},
	}
}

// DetectInstallMethod inspects the executable path.
func DetectInstallMethod() (InstallMethod, string) {
	exe, err := os.Executable()
	if err != nil {
		return InstallMethodUnknown, ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	for _, r := range installMethodRules() {
		if r.check(exe) {
			return r.method, exe
		}
	}
	return InstallMethodUnknown, exe
}

// SuggestUpgradeCommand returns the shell command that upgrades an install.
func SuggestUpgradeCommand(method InstallMethod) string {
	switch method {
	case InstallMethodGo:
		return "go install github.com/stockscan/cli@latest"
	default:
		return "brew upgrade stockscan/tap/stockscan"
	}
}

func pathMatchesHomebrew(path string) bool {
	p := filepath.ToSlash(path)
	return strings.HasPrefix(p, "/opt/homebrew/") ||
		strings.Contains(p, "/Cellar/") ||
		strings.Contains(p, "/.linuxbrew/")
}

func pathMatchesGoBin(path string) bool {
	p := filepath.ToSlash(path)
	if gobin := os.Getenv("GOBIN"); gobin != "" && strings.HasPrefix(p, filepath.ToSlash(gobin)+"/") {
		return true
	}
	return strings.Contains(p, "/go/bin/")
}
