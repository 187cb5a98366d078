package enums

import "fmt"

// ChatSender represents the sender_type enum on chat messages.
type ChatSender string

const (
	ChatSenderUser   ChatSender = "user"
	ChatSenderAI     ChatSender = "ai"
	ChatSenderSeller ChatSender = "seller"
)

var validChatSenders = []ChatSender{
	ChatSenderUser,
	ChatSenderAI,
	ChatSenderSeller,
}

// String implements fmt.Stringer.
func (c ChatSender) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ChatSender.
func (c ChatSender) IsValid() bool {
	for _, candidate := range validChatSenders {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChatSender converts raw input into a ChatSender.
func ParseChatSender(value string) (ChatSender, error) {
	for _, candidate := range validChatSenders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid chat sender %q", value)
}
