package services

import (
	"fmt"
)

// MaxButtons is the hard platform limit on quick-reply buttons per
// message. Flows needing more options must use list messages.
const MaxButtons = 3

// ButtonOption is one quick-reply button.
type ButtonOption struct {
	ID    string
	Title string
}

// ListRow is one selectable row of a list message; ID comes back verbatim
// as the interactive reply.
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection groups rows under an optional title.
type ListSection struct {
	Title string
	Rows  []ListRow
}

// Contact is a shareable contact card.
type Contact struct {
	Name  string
	Phone string
}

// Messenger is the outbound message-delivery collaborator. Implementations
// deliver to one phone; errors are transient and never corrupt session
// state.
type Messenger interface {
	SendText(to, body string) error
	SendButtons(to, body string, options []ButtonOption) error
	SendList(to, body, header, buttonLabel string, sections []ListSection) error
	SendContactCard(to string, contact Contact) error
}

// validateButtons rejects payloads exceeding the platform limit before
// any network call is attempted.
func validateButtons(options []ButtonOption) error {
	if len(options) == 0 {
		return fmt.Errorf("buttons message needs at least one option")
	}
	if len(options) > MaxButtons {
		return fmt.Errorf("buttons message allows at most %d options, got %d", MaxButtons, len(options))
	}
	return nil
}
