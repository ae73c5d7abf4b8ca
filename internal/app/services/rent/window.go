package rent

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	rentdom "github.com/brickvest/coinvest_layer/internal/app/domain/rent"
)

// WindowPolicy is the set of days of the month on which rent may be paid.
// Deployments have historically disagreed on the window (a 5-10 range in
// some, a single fixed day in others), so the policy is configuration, not
// code.
type WindowPolicy struct {
	days map[int]bool
}

// DefaultWindowPolicy allows days 5 through 10 inclusive.
func DefaultWindowPolicy() WindowPolicy {
	policy, _ := ParseWindowPolicy("5-10")
	return policy
}

// ParseWindowPolicy parses a policy spec: a range ("5-10"), a single day
// ("13"), or a comma-separated list of either ("5-7,13").
func ParseWindowPolicy(spec string) (WindowPolicy, error) {
	days := make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			from, err := parseDay(lo)
			if err != nil {
				return WindowPolicy{}, err
			}
			to, err := parseDay(hi)
			if err != nil {
				return WindowPolicy{}, err
			}
			if from > to {
				return WindowPolicy{}, fmt.Errorf("invalid day range %q", part)
			}
			for d := from; d <= to; d++ {
				days[d] = true
			}
			continue
		}
		d, err := parseDay(part)
		if err != nil {
			return WindowPolicy{}, err
		}
		days[d] = true
	}
	if len(days) == 0 {
		return WindowPolicy{}, fmt.Errorf("empty payment window spec %q", spec)
	}
	return WindowPolicy{days: days}, nil
}

func parseDay(raw string) (int, error) {
	d, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || d < 1 || d > 31 {
		return 0, fmt.Errorf("invalid day of month %q", raw)
	}
	return d, nil
}

// Allows reports whether the day of month is inside the window.
func (p WindowPolicy) Allows(day int) bool {
	return p.days[day]
}

// Days returns the allowed days in ascending order.
func (p WindowPolicy) Days() []int {
	out := make([]int, 0, len(p.days))
	for d := range p.days {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

func (p WindowPolicy) String() string {
	days := p.Days()
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// Eligibility is the outcome of the payment-window predicate.
type Eligibility struct {
	CanPay bool
	Reason string
}

// CanPayRent decides whether a rent payment may be attempted today. It is
// pure: the answer depends only on the prior payment list, the injected
// current time and the window policy.
func CanPayRent(payments []rentdom.Payment, today time.Time, policy WindowPolicy) Eligibility {
	if !policy.Allows(today.Day()) {
		return Eligibility{
			CanPay: false,
			Reason: fmt.Sprintf("rent can only be paid on days %s of the month", policy),
		}
	}
	for _, p := range payments {
		if p.PaidInMonth(today) {
			return Eligibility{CanPay: false, Reason: "rent has already been paid this month"}
		}
	}
	return Eligibility{CanPay: true}
}
