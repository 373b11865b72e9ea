package version

import "fmt"

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/dpbroker/dpb/pkg/version.Version=v1.0.0 \
//	  -X github.com/dpbroker/dpb/pkg/version.GitCommit=abc1234 \
//	  -X github.com/dpbroker/dpb/pkg/version.BuildDate=2026-07-30"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a single-line version string for --version output.
func Info() string {
	return fmt.Sprintf("dpb %s (%s, built %s)", Version, GitCommit, BuildDate)
}
