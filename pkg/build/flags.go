// SPDX-License-Identifier: MIT
//
// Package build holds metadata embedded at link time, for example:
//
//	go build -ldflags "-X spectrum/pkg/build.buildVersion=0.2.0 ..."
//
// Development builds without ldflags report placeholder values.
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the info for --version style output.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var current = devInfo()

func devInfo() Info {
	return Info{
		Name:    "spectrum",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
}

// Initialize copies the ldflags values into the current build info. It
// returns an error naming every missing flag and leaves the development
// placeholders in place when any is missing.
func Initialize() error {
	var errs []error
	for _, f := range []struct {
		name, value string
	}{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	current = Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	return nil
}

// Current returns the build info.
func Current() Info {
	return current
}
