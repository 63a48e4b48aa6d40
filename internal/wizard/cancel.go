package wizard

import "strings"

// CancelKeyword aborts the wizard from any free-text step.
const CancelKeyword = "/cancel"

// IsCancel reports whether text is the cancel keyword, ignoring surrounding space and case.
func IsCancel(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), CancelKeyword)
}
