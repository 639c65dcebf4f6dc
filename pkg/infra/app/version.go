package app

import (
	"github.com/kart-io/version"
	"github.com/spf13/pflag"
)

// GetVersion returns the git version stamped into the binary.
func GetVersion() string {
	return version.Get().GitVersion
}

// GetVersionInfo returns the full build information.
func GetVersionInfo() version.Info {
	return version.Get()
}

// VersionFields flattens the build information into logger key-value pairs.
func VersionFields() []any {
	info := version.Get()
	return []any{
		"version", info.GitVersion,
		"commit", info.GitCommit,
		"build_date", info.BuildDate,
		"go_version", info.GoVersion,
		"platform", info.Platform,
	}
}

// AddVersionFlags registers --version on fs.
func AddVersionFlags(fs *pflag.FlagSet) {
	version.AddFlags(fs)
}

// PrintAndExitIfRequested prints the version and exits when --version is set.
func PrintAndExitIfRequested() {
	version.PrintAndExitIfRequested()
}
