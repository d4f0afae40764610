package domain

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

type ChannelType string

const (
	ChannelCall  ChannelType = "call"
	ChannelSMS   ChannelType = "sms"
	ChannelChat  ChannelType = "chat"
	ChannelEmail ChannelType = "email"
)

func (c ChannelType) Valid() bool {
	switch c {
	case ChannelCall, ChannelSMS, ChannelChat, ChannelEmail:
		return true
	}
	return false
}

// RequiresThrottle reports whether sends on this channel go through the
// per-sender throttle guard. Voice and SMS providers rate limit upstream.
func (c ChannelType) RequiresThrottle() bool {
	return slices.Contains(ThrottledChannels(), c)
}

func ThrottledChannels() []ChannelType {
	return []ChannelType{ChannelEmail}
}

// SequenceStep is one template step of a campaign. WaitSeconds is the delay
// after the previous step; it is ignored for step 1.
type SequenceStep struct {
	CampaignID  int64       `db:"campaign_id" json:"campaignId"`
	StepNumber  int         `db:"step_number" json:"stepNumber"`
	ChannelType ChannelType `db:"channel_type" json:"channelType"`
	WaitSeconds int64       `db:"wait_seconds" json:"waitSeconds"`
	TemplateRef string      `db:"template_ref" json:"templateRef"`
}

type Campaign struct {
	ID             int64      `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	IsActive       bool       `db:"is_active" json:"isActive"`
	SenderIdentity string     `db:"sender_identity" json:"senderIdentity"`
	Offer          string     `db:"offer" json:"offer"`
	CalendarURL    string     `db:"calendar_url" json:"calendarUrl"`
	PublishedAt    *time.Time `db:"published_at" json:"publishedAt,omitempty"`
}

// Lead holds the contact fields owned by the lead directory.
type Lead struct {
	ID        int64  `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	Email     string `db:"email" json:"email"`
	Phone     string `db:"phone" json:"phone"`
	Company   string `db:"company" json:"company"`
}

// HasContactFor reports whether the lead can be reached on the channel.
func (l Lead) HasContactFor(channel ChannelType) bool {
	switch channel {
	case ChannelEmail:
		return l.Email != ""
	case ChannelCall, ChannelSMS, ChannelChat:
		return l.Phone != ""
	}
	return false
}

// ValidateSequence checks the template invariants: at least one step,
// numbers 1..N without gaps, known channels, non-negative waits and a
// template reference on every step. Steps are sorted in place.
func ValidateSequence(steps []SequenceStep) error {
	cfgErr := &ConfigError{}

	if len(steps) == 0 {
		cfgErr.Add("steps", "campaign has no sequence steps")
		return cfgErr
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].StepNumber < steps[j].StepNumber })

	for i, step := range steps {
		field := fmt.Sprintf("steps[%d]", i)
		if step.StepNumber != i+1 {
			cfgErr.Add(field, fmt.Sprintf("expected step number %d, got %d", i+1, step.StepNumber))
		}
		if !step.ChannelType.Valid() {
			cfgErr.Add(field, fmt.Sprintf("unknown channel type %q", step.ChannelType))
		}
		if step.WaitSeconds < 0 {
			cfgErr.Add(field, "wait interval must not be negative")
		}
		if step.TemplateRef == "" {
			cfgErr.Add(field, "missing message template reference")
		}
	}

	if cfgErr.HasProblems() {
		return cfgErr
	}
	return nil
}

// ValidateLeads checks that there is at least one lead and that every lead
// can be reached on every channel the sequence uses.
func ValidateLeads(leads []Lead, steps []SequenceStep) error {
	cfgErr := &ConfigError{}

	if len(leads) == 0 {
		cfgErr.Add("leads", "campaign has no target leads")
		return cfgErr
	}

	channels := make(map[ChannelType]struct{})
	for _, step := range steps {
		channels[step.ChannelType] = struct{}{}
	}

	for _, lead := range leads {
		for channel := range channels {
			if !lead.HasContactFor(channel) {
				cfgErr.Add(
					fmt.Sprintf("leads[%d]", lead.ID),
					fmt.Sprintf("missing contact field for channel %s", channel),
				)
			}
		}
	}

	if cfgErr.HasProblems() {
		return cfgErr
	}
	return nil
}
