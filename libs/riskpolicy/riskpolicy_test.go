package riskpolicy

import "testing"

func TestCheckPositionFlagsOutOfRangeValues(t *testing.T) {
	vs := CheckPosition("AAPL", 1.5, -1, 1.0)
	if vs.IsEmpty() {
		t.Fatal("expected violations")
	}
	codes := map[ViolationCode]bool{}
	for _, v := range vs {
		codes[v.Code] = true
	}
	for _, want := range []ViolationCode{ViolationPctPortfolioOutOfRange, ViolationNegativeRebalance, ViolationHardStopOutOfRange} {
		if !codes[want] {
			t.Fatalf("expected violation %s, got %+v", want, vs)
		}
	}
}

func TestCheckPositionValidInputsPass(t *testing.T) {
	if vs := CheckPosition("AAPL", 0.5, 5, 0.2); !vs.IsEmpty() {
		t.Fatalf("expected no violations, got %+v", vs)
	}
}

func TestCheckAllocationRejectsNonPositive(t *testing.T) {
	if vs := CheckAllocation(0); vs.IsEmpty() {
		t.Fatal("expected violation for zero allocation")
	}
	if vs := CheckAllocation(-5); vs.IsEmpty() {
		t.Fatal("expected violation for negative allocation")
	}
	if vs := CheckAllocation(1000); !vs.IsEmpty() {
		t.Fatal("expected no violation for positive allocation")
	}
}

func TestViolationsErrorJoinsMessages(t *testing.T) {
	vs := CheckPosition("", 2, -1, 1)
	if vs.Error() == "" {
		t.Fatal("expected non-empty error string")
	}
}
