package rent

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	rentdom "github.com/brickvest/coinvest_layer/internal/app/domain/rent"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func TestParseWindowPolicy(t *testing.T) {
	cases := []struct {
		spec    string
		allowed []int
		denied  []int
		wantErr bool
	}{
		{spec: "5-10", allowed: []int{5, 7, 10}, denied: []int{4, 11}},
		{spec: "13", allowed: []int{13}, denied: []int{12, 14}},
		{spec: "5-7,13", allowed: []int{5, 6, 7, 13}, denied: []int{4, 8, 12}},
		{spec: "", wantErr: true},
		{spec: "10-5", wantErr: true},
		{spec: "0-10", wantErr: true},
		{spec: "5-32", wantErr: true},
		{spec: "abc", wantErr: true},
	}
	for _, tc := range cases {
		policy, err := ParseWindowPolicy(tc.spec)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("spec %q: want error, got %v", tc.spec, policy)
			}
			continue
		}
		if err != nil {
			t.Fatalf("spec %q: %v", tc.spec, err)
		}
		for _, d := range tc.allowed {
			if !policy.Allows(d) {
				t.Fatalf("spec %q should allow day %d", tc.spec, d)
			}
		}
		for _, d := range tc.denied {
			if policy.Allows(d) {
				t.Fatalf("spec %q should deny day %d", tc.spec, d)
			}
		}
	}
}

func TestCanPayRentWindowBoundaries(t *testing.T) {
	policy := DefaultWindowPolicy()

	for _, d := range []int{5, 10} {
		if got := CanPayRent(nil, day(2026, time.March, d), policy); !got.CanPay {
			t.Fatalf("day %d: want payable, got %q", d, got.Reason)
		}
	}
	for _, d := range []int{4, 11} {
		got := CanPayRent(nil, day(2026, time.March, d), policy)
		if got.CanPay {
			t.Fatalf("day %d: want not payable", d)
		}
		if got.Reason == "" {
			t.Fatalf("day %d: denial must carry a reason", d)
		}
	}
}

func TestCanPayRentRejectsSecondPaymentInSameMonth(t *testing.T) {
	policy := DefaultWindowPolicy()
	payments := []rentdom.Payment{
		{Amount: decimal.NewFromInt(1_500_000), PaidAt: day(2026, time.March, 5)},
	}

	got := CanPayRent(payments, day(2026, time.March, 9), policy)
	if got.CanPay {
		t.Fatal("want not payable: rent already paid this month")
	}

	// A payment in a previous month does not block.
	if got := CanPayRent(payments, day(2026, time.April, 9), policy); !got.CanPay {
		t.Fatalf("prior-month payment must not block: %q", got.Reason)
	}

	// Same month number in a different year does not block either.
	if got := CanPayRent(payments, day(2027, time.March, 9), policy); !got.CanPay {
		t.Fatalf("prior-year payment must not block: %q", got.Reason)
	}
}

func TestCanPayRentChecksWindowBeforePaymentHistory(t *testing.T) {
	policy := DefaultWindowPolicy()
	payments := []rentdom.Payment{{PaidAt: day(2026, time.March, 5)}}

	got := CanPayRent(payments, day(2026, time.March, 20), policy)
	if got.CanPay {
		t.Fatal("want not payable")
	}
	if got.Reason == "rent has already been paid this month" {
		t.Fatal("outside the window the reason must name the window, not the history")
	}
}

func TestCanPayRentSingleDayPolicy(t *testing.T) {
	policy, err := ParseWindowPolicy("13")
	if err != nil {
		t.Fatalf("ParseWindowPolicy: %v", err)
	}
	if got := CanPayRent(nil, day(2026, time.March, 13), policy); !got.CanPay {
		t.Fatalf("day 13: want payable, got %q", got.Reason)
	}
	if got := CanPayRent(nil, day(2026, time.March, 5), policy); got.CanPay {
		t.Fatal("day 5: want not payable under single-day policy")
	}
}
