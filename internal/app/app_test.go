package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const spellingResponse = `{
	"matches": [
		{
			"offset": 0,
			"length": 3,
			"message": "Possible spelling mistake found.",
			"rule": {
				"id": "MORFOLOGIK_RULE_EN_US",
				"issueType": "misspelling",
				"category": {"id": "TYPOS", "name": "Possible Typo"}
			},
			"replacements": [{"value": "The"}]
		}
	]
}`

func newRuleServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(spellingResponse))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, endpoint string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artisan.toml")
	content := `
[checking]
mode = "rule-only"
profile = "fast"

[rule]
endpoint = "` + endpoint + `"

[logging]
level = "error"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAppCheckFile(t *testing.T) {
	srv := newRuleServer(t)

	a, err := New(Options{ConfigPath: writeConfig(t, srv.URL)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Shutdown()

	doc := filepath.Join(t.TempDir(), "chapter.adoc")
	if err := os.WriteFile(doc, []byte("Teh cat sat.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	n, err := a.CheckFile(context.Background(), doc, &out)
	if err != nil {
		t.Fatalf("CheckFile() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("findings = %d, want 1", n)
	}
	line := out.String()
	if !strings.Contains(line, ":1:1:") {
		t.Errorf("output %q should locate the finding at line 1, column 1", line)
	}
	if !strings.Contains(line, "The") {
		t.Errorf("output %q should carry the replacement", line)
	}
}

func TestAppFlagOverrides(t *testing.T) {
	srv := newRuleServer(t)

	a, err := New(Options{
		ConfigPath: writeConfig(t, srv.URL),
		Mode:       "disabled",
		Profile:    "thorough",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Shutdown()

	if got := a.Config().Checking.Mode; got != "disabled" {
		t.Errorf("mode = %q, want disabled", got)
	}
	if got := a.Config().Checking.Profile; got != "thorough" {
		t.Errorf("profile = %q, want thorough", got)
	}
}

func TestAppRejectsInvalidOverride(t *testing.T) {
	srv := newRuleServer(t)

	if _, err := New(Options{ConfigPath: writeConfig(t, srv.URL), Mode: "turbo"}); err == nil {
		t.Error("New() with invalid mode override should fail")
	}
}

func TestLocate(t *testing.T) {
	text := "first line\nsecond line\n"
	tests := []struct {
		offset    int
		line, col int
	}{
		{0, 1, 1},
		{5, 1, 6},
		{11, 2, 1},
		{18, 2, 8},
	}
	for _, tt := range tests {
		line, col := locate(text, tt.offset)
		if line != tt.line || col != tt.col {
			t.Errorf("locate(%d) = %d:%d, want %d:%d", tt.offset, line, col, tt.line, tt.col)
		}
	}
}
