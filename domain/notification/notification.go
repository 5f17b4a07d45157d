// Package notification provides the notification and alert records a stage
// transition emits, and the delivery contract used to dispatch them.
package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/legisflow/legisflow/domain/routing"
)

// Kind distinguishes notifications from alerts.
type Kind string

const (
	KindNotification Kind = "notification"
	KindAlert        Kind = "alert"
)

// DefaultChannel returns the channel used when a payload names none.
func (k Kind) DefaultChannel() string {
	if k == KindAlert {
		return "alert"
	}
	return "system"
}

// Status is the delivery status of a notification.
type Status string

const (
	// StatusPending is the status of every freshly generated record.
	StatusPending Status = "pending"

	// StatusSent marks a successful delivery.
	StatusSent Status = "sent"

	// StatusFailed marks a delivery that exhausted its retries.
	StatusFailed Status = "failed"
)

// Parameters carries the rule and step that produced a notification along
// with the payload that declared it.
type Parameters struct {
	RuleID  string          `json:"rule_id"`
	StepID  string          `json:"step_id"`
	Payload routing.Payload `json:"payload"`
}

// Notification is an append-only record of a message to deliver.
type Notification struct {
	ID         string     `json:"id"`
	StageID    string     `json:"stage_id"`
	ProposalID string     `json:"proposal_id"`
	Kind       Kind       `json:"kind"`
	Channel    string     `json:"channel"`
	Recipient  string     `json:"recipient"`
	Status     Status     `json:"status"`
	Message    string     `json:"message"`
	Parameters Parameters `json:"parameters"`
	CreatedAt  time.Time  `json:"created_at"`
	Attempts   int        `json:"attempts,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// FromPayload builds a pending notification for a step payload. index is the
// 1-based position of the payload within its list and names the placeholder
// recipient when the payload has none.
func FromPayload(kind Kind, stageID, proposalID string, rule *routing.Rule, step *routing.Step, p routing.Payload, index int, at time.Time) *Notification {
	channel := p.Channel
	if channel == "" {
		channel = kind.DefaultChannel()
	}
	recipient := p.Recipient
	if recipient == "" {
		recipient = PlaceholderRecipient(index)
	}
	var ruleID, stepID, stepName string
	if rule != nil {
		ruleID = rule.ID
	}
	if step != nil {
		stepID = step.ID
		stepName = step.Name
	}
	return &Notification{
		ID:         uuid.New().String(),
		StageID:    stageID,
		ProposalID: proposalID,
		Kind:       kind,
		Channel:    channel,
		Recipient:  recipient,
		Status:     StatusPending,
		Message:    Message(kind, stepName),
		Parameters: Parameters{RuleID: ruleID, StepID: stepID, Payload: p.Clone()},
		CreatedAt:  at,
	}
}

// PlaceholderRecipient names the recipient of the i-th payload lacking one.
func PlaceholderRecipient(i int) string {
	return fmt.Sprintf("destinatario-%d", i)
}

// IsPlaceholder reports whether the recipient was generated by PlaceholderRecipient.
func IsPlaceholder(recipient string) bool {
	var i int
	n, err := fmt.Sscanf(recipient, "destinatario-%d", &i)
	return err == nil && n == 1 && PlaceholderRecipient(i) == recipient
}

// Message returns the fixed message template for a kind and step name.
func Message(kind Kind, stepName string) string {
	if kind == KindAlert {
		return fmt.Sprintf("Automatic alert for step %q", stepName)
	}
	return fmt.Sprintf("Automatic notification for step %q", stepName)
}

// Validate checks the notification's required fields.
func (n *Notification) Validate() error {
	if n.ID == "" || n.StageID == "" || n.ProposalID == "" {
		return ErrInvalidNotification
	}
	if n.Kind != KindNotification && n.Kind != KindAlert {
		return ErrInvalidNotification
	}
	return nil
}

// MarkSent records a successful delivery.
func (n *Notification) MarkSent() {
	n.Attempts++
	n.Status = StatusSent
	n.LastError = ""
}

// MarkFailed records a failed delivery.
func (n *Notification) MarkFailed(err error) {
	n.Attempts++
	n.Status = StatusFailed
	if err != nil {
		n.LastError = err.Error()
	}
}

// Clone returns a deep copy of the notification.
func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}
	copied := *n
	copied.Parameters.Payload = n.Parameters.Payload.Clone()
	return &copied
}
