package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	videoDir   string
}

func setupCLITestEnv(t *testing.T, providerURL string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))
	t.Setenv("OPENSUBTITLES_API_KEY", "")

	videoDir := filepath.Join(base, "videos")
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		t.Fatalf("mkdir videos: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, base, providerURL)

	return &cliTestEnv{baseDir: base, configPath: configPath, videoDir: videoDir}
}

func writeTestConfig(t *testing.T, path, base, providerURL string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
log_dir = %q
cache_dir = %q
ffprobe = %q

[subtitles]
languages = ["en"]
min_video_size_mb = 0
max_age_hours = 0
search_mode = "advanced"

[providers]
movie = ["thesubdb"]
tv = ["thesubdb"]
timeout_seconds = 5

[providers.thesubdb]
base_url = %q

[cache]
backend = "memory"

[logging]
format = "json"
level = "error"
`,
		filepath.Join(base, "logs"),
		filepath.Join(base, "cache"),
		filepath.Join(base, "bin", "ffprobe-missing"),
		providerURL,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", needle, haystack)
	}
}

// writeVideo creates a file large enough for both content hashes.
func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := bytes.Repeat([]byte("subfetch-video-"), 200*1024/15)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}
