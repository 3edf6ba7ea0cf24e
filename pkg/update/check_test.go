package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestUpgradeCommand(t *testing.T) {
	tests := []struct {
		method   InstallMethod
		expected string
	}{
		{InstallMethodBrew, "brew upgrade stockscan/tap/stockscan"},
		{InstallMethodGo, "go install github.com/stockscan/cli@latest"},
		{InstallMethodUnknown, "brew upgrade stockscan/tap/stockscan"},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.expected, SuggestUpgradeCommand(tt.method))
		})
	}
}

func TestPathMatchesHomebrew(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/opt/homebrew/bin/stockscan", true},
		{"/usr/local/Cellar/stockscan/1.0/bin/stockscan", true},
		{"/home/linuxbrew/.linuxbrew/Cellar/stockscan/1.0/bin/stockscan", true},
		{"/home/user/go/bin/stockscan", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, pathMatchesHomebrew(tt.path))
		})
	}
}

func TestInstallMethodRulesPathPrecedence(t *testing.T) {
	t.Setenv("GOBIN", "")
	rules := installMethodRules()

	detect := func(path string) InstallMethod {
		for _, r := range rules {
			if r.check(path) {
				return r.method
			}
		}
		return InstallMethodUnknown
	}

	assert.Equal(t, InstallMethodBrew, detect("/opt/homebrew/bin/stockscan"))
	assert.Equal(t, InstallMethodGo, detect("/home/user/go/bin/stockscan"))
	assert.Equal(t, InstallMethodUnknown, detect("/usr/local/bin/stockscan"))
}

func TestPathMatchesGoBin_UsesGOBIN(t *testing.T) {
	t.Setenv("GOBIN", "/srv/tools")
	assert.True(t, pathMatchesGoBin("/srv/tools/stockscan"))
	assert.False(t, pathMatchesGoBin("/srv/toolsx/stockscan"))
}

func TestIsNewerVersion(t *testing.T) {
	newer, err := IsNewerVersion("v0.2.0", "v0.3.1")
	require.NoError(t, err)
	assert.True(t, newer)

	newer, err = IsNewerVersion("0.3.1", "v0.3.1")
	require.NoError(t, err)
	assert.False(t, newer)

	_, err = IsNewerVersion("dev", "v0.3.1")
	assert.Error(t, err)
}

func TestFetchLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"tag_name":"v1.4.0","html_url":"https://github.com/stockscan/cli/releases/tag/v1.4.0"}`))
	}))
	defer srv.Close()

	old := LatestReleaseURL
	LatestReleaseURL = srv.URL
	t.Cleanup(func() { LatestReleaseURL = old })

	tag, url, err := FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", tag)
	assert.Equal(t, "https://github.com/stockscan/cli/releases/tag/v1.4.0", url)
}

func TestFetchLatest_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	old := LatestReleaseURL
	LatestReleaseURL = srv.URL
	t.Cleanup(func() { LatestReleaseURL = old })

	_, _, err := FetchLatest(context.Background())
	assert.Error(t, err)
}
