package commands

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/systmms/ticketrot/internal/config"
	tkerrors "github.com/systmms/ticketrot/internal/errors"
	"github.com/systmms/ticketrot/pkg/exec"
)

var versionPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)+`)

// checkServerVersion verifies the dependent server binary meets the
// configured minimum version. Servers below the minimum cannot load
// per-generation ticket key files from fixed paths.
func checkServerVersion(ctx context.Context, runner exec.CommandRunner, def *config.Definition) error {
	if def.MinServerVersion == "" {
		return nil
	}

	path, err := runner.LookPath(def.ServerBinary)
	if err != nil {
		return tkerrors.UserError{
			Message:    fmt.Sprintf("Dependent server binary '%s' not found", def.ServerBinary),
			Suggestion: "Install the server or adjust 'server_binary' in the configuration",
			Err:        err,
		}
	}

	// nginx prints its version banner on stderr.
	stdout, stderr, _ := runner.Execute(ctx, path, "-v")
	banner := string(stdout) + string(stderr)

	got := versionPattern.FindString(banner)
	if got == "" {
		return tkerrors.UserError{
			Message:    fmt.Sprintf("Could not determine version of '%s'", def.ServerBinary),
			Details:    strings.TrimSpace(banner),
			Suggestion: "Run the binary with -v manually to inspect its version output",
		}
	}

	if compareVersions(got, def.MinServerVersion) < 0 {
		return tkerrors.UserError{
			Message: fmt.Sprintf("%s %s is older than required minimum %s",
				def.ServerBinary, got, def.MinServerVersion),
			Suggestion: "Upgrade the server; older releases cannot load per-generation ticket key files",
		}
	}

	return nil
}

// compareVersions compares dotted numeric versions.
// Returns -1, 0, or 1 like strings.Compare.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}
