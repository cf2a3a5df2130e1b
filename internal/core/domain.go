package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type (
	Role string

	// Message is one entry of a chat transcript.
	Message struct {
		Role    Role   `json:"role"`
		Content string `json:"content"`
	}

	Transaction struct {
		ID           int64           `json:"id"`
		Timestamp    string          `json:"timestamp"`
		Description  string          `json:"description"`
		Amount       decimal.Decimal `json:"amount"`
		Category     string          `json:"category"`
		SplitDetails *string         `json:"split_details,omitempty"`
	}

	// CategoryTotal is the server-side aggregate of spending for one category.
	CategoryTotal struct {
		Category string          `json:"category"`
		Total    decimal.Decimal `json:"total"`
	}

	DashboardStats struct {
		TotalSpent  decimal.Decimal `json:"total_spent"`
		Budget      decimal.Decimal `json:"budget"`
		Remaining   decimal.Decimal `json:"remaining"`
		ActiveDebts decimal.Decimal `json:"active_debts"`
	}

	// ChatRequest is the canonical POST /chat body.
	ChatRequest struct {
		Message string `json:"message"`
	}

	// LegacyChatRequest is the older POST /chat body that also names the user.
	LegacyChatRequest struct {
		UserID  string `json:"user_id"`
		Message string `json:"message"`
	}

	ChatReply struct {
		Response string `json:"response"`
	}
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidField = errors.New("invalid field")
	ErrInvalidRole  = errors.New("invalid role")
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
	}
	return nil
}

// UnmarshalJSON requires every field except split_details to be present.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var w struct {
		ID           *int64           `json:"id"`
		Timestamp    *string          `json:"timestamp"`
		Description  *string          `json:"description"`
		Amount       *decimal.Decimal `json:"amount"`
		Category     *string          `json:"category"`
		SplitDetails *string          `json:"split_details"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	var missing []string
	if w.ID == nil {
		missing = append(missing, "id")
	}
	if w.Timestamp == nil {
		missing = append(missing, "timestamp")
	}
	if w.Description == nil {
		missing = append(missing, "description")
	}
	if w.Amount == nil {
		missing = append(missing, "amount")
	}
	if w.Category == nil {
		missing = append(missing, "category")
	}
	if err := missingFields("transaction", missing); err != nil {
		return err
	}

	*t = Transaction{
		ID:           *w.ID,
		Timestamp:    *w.Timestamp,
		Description:  *w.Description,
		Amount:       *w.Amount,
		Category:     *w.Category,
		SplitDetails: w.SplitDetails,
	}
	return nil
}

func (c *CategoryTotal) UnmarshalJSON(b []byte) error {
	var w struct {
		Category *string          `json:"category"`
		Total    *decimal.Decimal `json:"total"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	var missing []string
	if w.Category == nil {
		missing = append(missing, "category")
	}
	if w.Total == nil {
		missing = append(missing, "total")
	}
	if err := missingFields("category total", missing); err != nil {
		return err
	}

	*c = CategoryTotal{Category: *w.Category, Total: *w.Total}
	return nil
}

func (s *DashboardStats) UnmarshalJSON(b []byte) error {
	var w struct {
		TotalSpent  *decimal.Decimal `json:"total_spent"`
		Budget      *decimal.Decimal `json:"budget"`
		Remaining   *decimal.Decimal `json:"remaining"`
		ActiveDebts *decimal.Decimal `json:"active_debts"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	var missing []string
	if w.TotalSpent == nil {
		missing = append(missing, "total_spent")
	}
	if w.Budget == nil {
		missing = append(missing, "budget")
	}
	if w.Remaining == nil {
		missing = append(missing, "remaining")
	}
	if w.ActiveDebts == nil {
		missing = append(missing, "active_debts")
	}
	if err := missingFields("dashboard stats", missing); err != nil {
		return err
	}

	*s = DashboardStats{
		TotalSpent:  *w.TotalSpent,
		Budget:      *w.Budget,
		Remaining:   *w.Remaining,
		ActiveDebts: *w.ActiveDebts,
	}
	return nil
}

func (r *ChatReply) UnmarshalJSON(b []byte) error {
	var w struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Response == nil {
		return missingFields("chat reply", []string{"response"})
	}
	r.Response = *w.Response
	return nil
}

func (t Transaction) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("%w: transaction id %d", ErrInvalidField, t.ID)
	}
	if strings.TrimSpace(t.Category) == "" {
		return fmt.Errorf("%w: transaction %d has empty category", ErrInvalidField, t.ID)
	}
	return nil
}

func (c CategoryTotal) Validate() error {
	if strings.TrimSpace(c.Category) == "" {
		return fmt.Errorf("%w: empty category", ErrInvalidField)
	}
	return nil
}

// IsOverBudget reports whether spending has exceeded the budget.
func (s DashboardStats) IsOverBudget() bool {
	return s.Remaining.IsNegative()
}

func missingFields(what string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w: %s", what, ErrMissingField, strings.Join(fields, ", "))
}
