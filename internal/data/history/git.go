package history

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

const gitTimeout = 2 * time.Second

// GitHead returns the abbreviated HEAD commit of the repository containing
// dir and its commit time. Both are zero outside a git checkout.
func GitHead(ctx context.Context, dir string) (string, time.Time) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	out := gitOutput(ctx, dir, "log", "-1", "--format=%h%n%cI", "--abbrev=12")
	hash, rawTime, ok := strings.Cut(out, "\n")
	if !ok || hash == "" {
		return "", time.Time{}
	}
	committed, err := time.Parse(time.RFC3339, strings.TrimSpace(rawTime))
	if err != nil {
		return hash, time.Time{}
	}
	return hash, committed.UTC()
}

func gitOutput(ctx context.Context, dir string, args ...string) string {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(stdout.String())
}
