package domain

import (
	"math"
	"time"
)

// ThrottleState is the per-sender send budget.
type ThrottleState struct {
	SenderIdentity     string     `db:"sender_identity" json:"senderIdentity"`
	LastSentAt         *time.Time `db:"last_sent_at" json:"lastSentAt,omitempty"`
	SentToday          int        `db:"sent_today" json:"sentToday"`
	SentOn             *string    `db:"sent_on" json:"sentOn,omitempty"`
	DailyCap           int        `db:"daily_cap" json:"dailyCap"`
	MinIntervalSeconds int64      `db:"min_interval_seconds" json:"minIntervalSeconds"`
}

type ThrottleDecision struct {
	SenderIdentity string `json:"senderIdentity"`
	CanSend        bool   `json:"canSend"`
	WaitSeconds    int64  `json:"waitSeconds"`
	SentToday      int    `json:"sentToday"`
	DailyCap       int    `json:"dailyCap"`
}

const dateLayout = "2006-01-02"

// CountToday returns the number of sends already made on now's calendar day
// in loc. The stored counter belongs to another day once the date rolls.
func (s ThrottleState) CountToday(now time.Time, loc *time.Location) int {
	if s.SentOn == nil || *s.SentOn != now.In(loc).Format(dateLayout) {
		return 0
	}
	return s.SentToday
}

// Evaluate applies the interval and daily cap rules at now. When the send is
// allowed the state is updated in place to reserve the slot.
func (s *ThrottleState) Evaluate(now time.Time, loc *time.Location) ThrottleDecision {
	decision := ThrottleDecision{
		SenderIdentity: s.SenderIdentity,
		DailyCap:       s.DailyCap,
	}

	minInterval := time.Duration(s.MinIntervalSeconds) * time.Second
	if s.LastSentAt != nil {
		if elapsed := now.Sub(*s.LastSentAt); elapsed < minInterval {
			decision.WaitSeconds = ceilSeconds(minInterval - elapsed)
			decision.SentToday = s.CountToday(now, loc)
			return decision
		}
	}

	sentToday := s.CountToday(now, loc)
	if sentToday >= s.DailyCap {
		decision.WaitSeconds = ceilSeconds(untilNextDay(now, loc))
		decision.SentToday = sentToday
		return decision
	}

	today := now.In(loc).Format(dateLayout)
	sentAt := now
	s.LastSentAt = &sentAt
	s.SentOn = &today
	s.SentToday = sentToday + 1

	decision.CanSend = true
	decision.SentToday = s.SentToday
	return decision
}

func untilNextDay(now time.Time, loc *time.Location) time.Duration {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return midnight.Sub(local)
}

func ceilSeconds(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()))
}
