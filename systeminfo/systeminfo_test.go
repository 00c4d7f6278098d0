package systeminfo

import "testing"

func TestCollect(t *testing.T) {
	info, err := Collect()
	if err != nil {
		t.Skipf("host info unavailable: %v", err)
	}
	if info.Hostname == "" {
		t.Fatal("expected a hostname")
	}
	if info.OS == "" {
		t.Fatal("expected an OS name")
	}
}
