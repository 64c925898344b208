package models

import (
	"strings"
	"time"
)

type Scope string

const (
	ScopeMine Scope = "mine"
	ScopeTeam Scope = "team"
	ScopeAll  Scope = "all"
)

func (s Scope) IsValid() bool {
	return s == ScopeMine || s == ScopeTeam || s == ScopeAll
}

// DeadlineBucket windows are cumulative from now, not calendar aligned.
type DeadlineBucket string

const (
	DeadlineThisWeek  DeadlineBucket = "this_week"
	DeadlineNextWeek  DeadlineBucket = "next_week"
	DeadlineThisMonth DeadlineBucket = "this_month"
	DeadlineAll       DeadlineBucket = "all"
)

func (b DeadlineBucket) IsValid() bool {
	switch b {
	case DeadlineThisWeek, DeadlineNextWeek, DeadlineThisMonth, DeadlineAll:
		return true
	}
	return false
}

const week = 7 * 24 * time.Hour

// Range returns the bucket bounds: deadline > after (when set) and deadline <= until.
// Both are nil for DeadlineAll.
func (b DeadlineBucket) Range(now time.Time) (after, until *time.Time) {
	switch b {
	case DeadlineThisWeek:
		u := now.Add(week)
		return nil, &u
	case DeadlineNextWeek:
		a, u := now.Add(week), now.Add(2*week)
		return &a, &u
	case DeadlineThisMonth:
		u := now.AddDate(0, 1, 0)
		return nil, &u
	}
	return nil, nil
}

type SortBy string

const (
	SortCreated SortBy = "created"
	SortOrder   SortBy = "order"
)

// PostQuery is a validated list request. UserID is the caller the scope is relative to.
type PostQuery struct {
	UserID   string
	Scope    Scope
	Search   string
	Category string
	Priority Priority
	Deadline DeadlineBucket
	Sort     SortBy
	Limit    int
	Offset   int
	Now      time.Time
}

// Matches applies every filter of q to p. Storage backends without a query
// language use it directly; the Mongo repository mirrors it in bson.
func (q PostQuery) Matches(p *Post) bool {
	switch q.Scope {
	case ScopeMine:
		if p.Owner != q.UserID {
			return false
		}
	case ScopeTeam:
		if !p.IsCollaborative || !p.IsStakeholder(q.UserID) {
			return false
		}
	default:
		if !p.IsStakeholder(q.UserID) {
			return false
		}
	}
	if q.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(q.Search)) {
		return false
	}
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	if q.Priority != "" && p.Priority != q.Priority {
		return false
	}
	after, until := q.Deadline.Range(q.Now)
	if until != nil {
		if p.Deadline == nil || p.Deadline.After(*until) {
			return false
		}
		if after != nil && !p.Deadline.After(*after) {
			return false
		}
	}
	return true
}

type PostPage struct {
	Posts   []*Post `json:"posts"`
	Total   int64   `json:"total"`
	HasMore bool    `json:"hasMore"`
}
