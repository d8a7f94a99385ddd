package buildconfig

import "testing"

func TestInfo(t *testing.T) {
	info := Get()
	if info.Version != Version() || info.Commit != Commit() {
		t.Errorf("Get() = %+v, want version %q commit %q", info, Version(), Commit())
	}
	if got := (Info{Version: "v1.2.0", Commit: "abc123"}).String(); got != "neon-soul v1.2.0 (abc123)" {
		t.Errorf("String() = %q", got)
	}
}
