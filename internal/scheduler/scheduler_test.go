package scheduler

import "testing"

// Daily deal reports should fire once every dealReportsPerCheckCycles
// price-check ticks - four ticks at the default 6h interval is 24h.
func TestDealReportCadenceFiresOnEveryFourthCycle(t *testing.T) {
	want := map[int]bool{0: true, 1: false, 2: false, 3: false, 4: true, 7: false, 8: true}

	for cycle, wantReport := range want {
		got := cycle%dealReportsPerCheckCycles == 0
		if got != wantReport {
			t.Errorf("cycle %d: report = %v, want %v", cycle, got, wantReport)
		}
	}
}

func TestDealReportCadenceMatchesDefaultCheckInterval(t *testing.T) {
	const defaultCheckIntervalHours = 6
	if dealReportsPerCheckCycles*defaultCheckIntervalHours != 24 {
		t.Errorf("dealReportsPerCheckCycles (%d) * %dh default interval = %dh, want 24h",
			dealReportsPerCheckCycles, defaultCheckIntervalHours, dealReportsPerCheckCycles*defaultCheckIntervalHours)
	}
}
