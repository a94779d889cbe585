package payload

import "fmt"

const maxMessageLength = 512

// ValidateMessages checks an operator-supplied message pool before it replaces
// a built-in one.
func ValidateMessages(severity string, messages []string) (bool, []string) {
	var problems []string

	if len(messages) == 0 {
		problems = append(problems, fmt.Sprintf("%s: at least one message is required", severity))
	}

	for i, msg := range messages {
		if msg == "" {
			problems = append(problems, fmt.Sprintf("%s: message %d is empty", severity, i))
		}
		if len(msg) > maxMessageLength {
			problems = append(problems, fmt.Sprintf("%s: message %d exceeds %d bytes", severity, i, maxMessageLength))
		}
	}

	return len(problems) == 0, problems
}
