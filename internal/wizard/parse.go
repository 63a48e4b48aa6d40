package wizard

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Proton-105/giftshop-bot/internal/domain"
)

var (
	// ErrInvalidQuantity is returned for anything but a strictly positive integer.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	// ErrInvalidRecipient is returned when text is neither a user id nor an @handle.
	ErrInvalidRecipient = errors.New("recipient must be a user id or an @channel")
)

// ParseQuantity parses a strictly positive integer quantity.
func ParseQuantity(text string) (int64, error) {
	qty, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	return qty, nil
}

// ParseRecipient classifies text: "@..." is a channel handle, all digits is a user id.
func ParseRecipient(text string) (domain.Recipient, error) {
	input := strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(input, "@"):
		return domain.ChannelRecipient(input), nil
	case isDigits(input):
		id, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return domain.Recipient{}, ErrInvalidRecipient
		}
		return domain.UserRecipient(id), nil
	default:
		return domain.Recipient{}, ErrInvalidRecipient
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
