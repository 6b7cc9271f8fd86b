package reporting

import (
	"math"
	"strings"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/internal/businesses"
	"call-assistant/internal/calls"
)

const RecentCallsLimit = 10

// TimeRange filters on call start_time. Zero ends are open.
type TimeRange struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// ParseRange accepts RFC3339 or YYYY-MM-DD for either end. A date-only
// "to" covers that whole day.
func ParseRange(from, to string) (TimeRange, error) {
	var (
		r   TimeRange
		err error
	)
	if r.From, err = parseBound(from, false); err != nil {
		return TimeRange{}, apperrors.Validation("invalid from: %s", from)
	}
	if r.To, err = parseBound(to, true); err != nil {
		return TimeRange{}, apperrors.Validation("invalid to: %s", to)
	}
	if !r.From.IsZero() && !r.To.IsZero() && !r.To.After(r.From) {
		return TimeRange{}, apperrors.Validation("to must be after from")
	}
	return r, nil
}

func parseBound(v string, end bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	if end {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// Totals are the aggregate part of the dashboard.
type Totals struct {
	TotalCalls      int     `json:"total_calls"`
	HumanCalls      int     `json:"human_calls"`
	AICalls         int     `json:"ai_calls"`
	AverageDuration float64 `json:"average_duration"`
	TotalCost       float64 `json:"total_cost"`
}

type Dashboard struct {
	Totals
	RecentCalls []calls.Call        `json:"recent_calls"`
	Business    businesses.Business `json:"business"`
}

// Statistics is the admin overview.
type Statistics struct {
	TotalUsers         int `json:"total_users"`
	TotalBusinesses    int `json:"total_businesses"`
	ActiveBusinesses   int `json:"active_businesses"`
	InactiveBusinesses int `json:"inactive_businesses"`
	PendingInvites     int `json:"pending_invites"`
}

// Summarize aggregates calls the way the SQL repository does: average over
// calls with a duration, missing costs count as zero.
func Summarize(rows []calls.Call) Totals {
	var (
		out       Totals
		durations int
		durSum    int
	)
	for _, c := range rows {
		out.TotalCalls++
		switch c.Type {
		case calls.CallTypeHuman:
			out.HumanCalls++
		case calls.CallTypeAI:
			out.AICalls++
		}
		if c.DurationSeconds != nil {
			durations++
			durSum += *c.DurationSeconds
		}
		if c.Cost != nil {
			out.TotalCost += *c.Cost
		}
	}
	if durations > 0 {
		out.AverageDuration = float64(durSum) / float64(durations)
	}
	out.TotalCost = math.Round(out.TotalCost*1e4) / 1e4
	return out
}
