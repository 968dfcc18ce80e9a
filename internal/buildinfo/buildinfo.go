// Package buildinfo holds version values set at link time, e.g.
//
//	go build -ldflags "-X github.com/aidanlsb/sceneql/internal/buildinfo.Version=v0.1.0"
//
// They stay empty for local builds, where debug.ReadBuildInfo is used instead.
package buildinfo

var (
	Version = ""
	Commit  = ""
	Date    = ""
)
