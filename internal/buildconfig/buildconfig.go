// Package buildconfig exposes build metadata set with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/live-neon/neon-soul-sub003/internal/buildconfig.version=v0.3.0"
package buildconfig

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
)

// Info is the build metadata reported by /health and `soulctl version`.
type Info struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
}

func Version() string {
	return version
}

func Commit() string {
	return commit
}

func Get() Info {
	return Info{Version: version, Commit: commit}
}

func (i Info) String() string {
	return fmt.Sprintf("neon-soul %s (%s)", i.Version, i.Commit)
}
