package payment

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to   Status
		strict     bool
		permissive bool
	}{
		{StatusPending, StatusApproved, true, true},
		{StatusPending, StatusContested, true, true},
		{StatusPending, StatusPaid, false, true},
		{StatusContested, StatusApproved, true, true},
		{StatusContested, StatusPaid, false, true},
		{StatusApproved, StatusPaid, true, true},
		{StatusApproved, StatusContested, false, true},
		{StatusPaid, StatusApproved, false, false},
		{StatusPaid, StatusContested, false, false},
		{StatusPaid, StatusPending, false, false},
		{StatusPending, Status("archived"), false, false},
	}
	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to, true); got != tc.strict {
			t.Errorf("strict %s -> %s = %v, want %v", tc.from, tc.to, got, tc.strict)
		}
		if got := CanTransition(tc.from, tc.to, false); got != tc.permissive {
			t.Errorf("permissive %s -> %s = %v, want %v", tc.from, tc.to, got, tc.permissive)
		}
	}
}
