package version

import (
	"runtime/debug"
	"testing"

	"tally/internal/platform/testkit"
)

func TestInfo_Defaults(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &readBuildInfo, func() (*debug.BuildInfo, bool) { return nil, false })

	got := Info("tally-ingest")
	if got.Service != "tally-ingest" || got.Version != "dev" || got.Commit != "none" || got.Date != "unknown" {
		t.Fatalf("Info = %+v", got)
	}
}

func TestInfo_FallsBackToVCSRevision(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &readBuildInfo, func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		}}, true
	})

	if got := Info("tally-retention").Commit; got != "0123456789ab" {
		t.Fatalf("Commit = %q, want short revision", got)
	}
}

func TestInfo_StampedCommitWins(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &commit, "abcd")
	if got := Info("x").Commit; got != "abcd" {
		t.Fatalf("Commit = %q, want abcd", got)
	}
}
