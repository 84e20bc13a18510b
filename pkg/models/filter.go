package models

import "time"

// DateWindow restricts issues by reported_at. Either Days (a relative
// window ending at evaluation time) or an explicit Start/End pair is set.
// Relative windows are computed from "now" when the filter is evaluated,
// not when the data was fetched, so repeated evaluations over the same
// rows can legitimately yield different results as time passes.
type DateWindow struct {
	Days  int        `json:"days,omitempty"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// FilterSpec is a compound issue predicate. Fields combine with logical
// AND; values within a field combine with logical OR. An absent or empty
// field matches everything.
type FilterSpec struct {
	Statuses   []string    `json:"statuses,omitempty"`
	Urgencies  []string    `json:"urgencies,omitempty"`
	Types      []string    `json:"types,omitempty"`
	SearchText string      `json:"search_text,omitempty"`
	DateWindow *DateWindow `json:"date_window,omitempty"`
}

// DefaultIssueFilter returns the issues-view default: resolved and closed
// issues are hidden until explicitly requested.
func DefaultIssueFilter() FilterSpec {
	return FilterSpec{
		Statuses: []string{IssueStatusOpen, IssueStatusInProgress},
	}
}

// IsZero reports whether no constraint is set.
func (f FilterSpec) IsZero() bool {
	return len(f.Statuses) == 0 &&
		len(f.Urgencies) == 0 &&
		len(f.Types) == 0 &&
		f.SearchText == "" &&
		f.DateWindow == nil
}
