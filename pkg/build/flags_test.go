// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	origName, origTime, origCommit, origVersion := buildName, buildTime, buildCommit, buildVersion
	origCurrent := current

	exitCode := m.Run()

	buildName, buildTime, buildCommit, buildVersion = origName, origTime, origCommit, origVersion
	current = origCurrent
	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrs    []string
	}{
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", []string{"BuildName is required"}},
		{"Missing BuildTime", "testapp", "", "abcdef123", "v1.0.0", []string{"BuildTime is required"}},
		{"Missing BuildCommit", "testapp", "2025-04-13", "", "v1.0.0", []string{"BuildCommit is required"}},
		{"Missing BuildVersion", "testapp", "2025-04-13", "abcdef123", "", []string{"BuildVersion is required"}},
		{"Missing everything", "", "", "", "", []string{"BuildName", "BuildTime", "BuildCommit", "BuildVersion"}},
		{"Success Case", "testapp", "2025-04-13", "abcdef123", "v1.0.0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current = devInfo()
			buildName, buildTime, buildCommit, buildVersion = tt.buildName, tt.buildTime, tt.buildCommit, tt.buildVer

			err := Initialize()

			if len(tt.wantErrs) > 0 {
				if err == nil {
					t.Fatal("Initialize() expected error, got nil")
				}
				for _, want := range tt.wantErrs {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("Initialize() error = %v, want it to mention %q", err, want)
					}
				}
				if Current() != devInfo() {
					t.Errorf("failed Initialize() changed the build info to %+v", Current())
				}
				return
			}

			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			want := Info{Name: tt.buildName, Time: tt.buildTime, Commit: tt.buildCommit, Version: tt.buildVer}
			if Current() != want {
				t.Errorf("Current() = %+v, want %+v", Current(), want)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Name: "testapp", Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0"}
	want := "testapp v1.0.0 (commit abcdef123, built 2025-04-13)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
