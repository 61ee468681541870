package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultMessageTaskPageSize is the page size used by the message task list.
const DefaultMessageTaskPageSize = 10

// Message types understood by the backend dispatcher.
const (
	MessageTypeMessage = 0
	MessageTypeWebhook = 1
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// MessageTask is a scheduled job that pushes new articles to a webhook.
// MpsID carries the backend's JSON-encoded subscription selection verbatim.
type MessageTask struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	MessageType     int    `json:"message_type"`
	MessageTemplate string `json:"message_template"`
	WebHookURL      string `json:"web_hook_url"`
	Headers         string `json:"headers,omitempty"`
	Cookies         string `json:"cookies,omitempty"`
	MpsID           any    `json:"mps_id"`
	Status          int    `json:"status"`
	CronExp         string `json:"cron_exp,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// NextRun returns the next time the task's cron expression fires after the
// given instant, evaluated in loc. It returns false when the task has no
// schedule or the expression cannot be parsed.
func (t *MessageTask) NextRun(after time.Time, loc *time.Location) (time.Time, bool) {
	if strings.TrimSpace(t.CronExp) == "" {
		return time.Time{}, false
	}
	sched, err := cronParser.Parse(t.CronExp)
	if err != nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	return sched.Next(after.In(loc)), true
}

// MessageTaskCreate is the payload for creating a message task.
type MessageTaskCreate struct {
	Name            string `json:"name" validate:"required,max=255"`
	MessageType     int    `json:"message_type" validate:"oneof=0 1"`
	MessageTemplate string `json:"message_template"`
	WebHookURL      string `json:"web_hook_url" validate:"required,url"`
	Headers         string `json:"headers,omitempty"`
	Cookies         string `json:"cookies,omitempty"`
	MpsID           any    `json:"mps_id"`
	Status          *int   `json:"status,omitempty"`
	CronExp         string `json:"cron_exp,omitempty"`
}

// Validate checks struct constraints and the cron expression.
func (c *MessageTaskCreate) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return err
	}
	if c.CronExp != "" {
		return ValidateCronExpression(c.CronExp)
	}
	return nil
}

// MessageTaskUpdate is a partial update. Nil fields are left untouched.
type MessageTaskUpdate struct {
	Name            *string `json:"name,omitempty"`
	MessageType     *int    `json:"message_type,omitempty"`
	MessageTemplate *string `json:"message_template,omitempty"`
	WebHookURL      *string `json:"web_hook_url,omitempty" validate:"omitempty,url"`
	Headers         *string `json:"headers,omitempty"`
	Cookies         *string `json:"cookies,omitempty"`
	MpsID           any     `json:"mps_id,omitempty"`
	Status          *int    `json:"status,omitempty"`
	CronExp         *string `json:"cron_exp,omitempty"`
}

// Validate checks the fields that are present.
func (u *MessageTaskUpdate) Validate() error {
	if err := ValidateStruct(u); err != nil {
		return err
	}
	if u.CronExp != nil && *u.CronExp != "" {
		return ValidateCronExpression(*u.CronExp)
	}
	return nil
}

// ValidateCronExpression checks a standard five-field cron expression.
func ValidateCronExpression(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidCronExpression, expr, err)
	}
	return nil
}
