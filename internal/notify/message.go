package notify

import "fmt"

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityFailure
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityFailure:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Category tags which part of the run a notification is about.
type Category string

const (
	CategoryDatabase Category = "database"
	CategoryServer   Category = "server"
	CategoryInit     Category = "init"
	CategoryToken    Category = "token"
	CategorySync     Category = "sync"
)

const (
	colorFailure = "#DC143C"
	colorWarning = "#F4BB44"
)

// Message is the rendered form of a notification.
type Message struct {
	Severity Severity
	Category Category
	Title    string
	Text     string
}

func (m Message) Color() string {
	if m.Severity == SeverityFailure {
		return colorFailure
	}
	return colorWarning
}

// Format renders a notification about subject with the given details.
func Format(sev Severity, cat Category, subject, details string) Message {
	m := Message{Severity: sev, Category: cat}
	detail := "\n\nDetails:\n" + details

	switch sev {
	case SeverityFailure:
		notExecuted := fmt.Sprintf("The %s scaling for staging %s was not executed", cat, subject)
		switch cat {
		case CategoryDatabase:
			m.Title = "ERROR: Database scaling failed for: " + subject
			m.Text = notExecuted + detail
		case CategoryServer:
			m.Title = "ERROR: Pod scaling failed for: " + subject
			m.Text = notExecuted + detail
		case CategoryInit:
			m.Title = "ERROR: Pod autoscaler failed to run due to " + subject
			m.Text = detail
		case CategoryToken:
			m.Title = "ERROR: Failed to retrieve session token due to " + subject
			m.Text = detail
		case CategorySync:
			m.Title = "ERROR: Syncing failed for: " + subject
			m.Text = detail
		default:
			m.Title = fmt.Sprintf("ERROR: %s failed for: %s", cat, subject)
			m.Text = detail
		}
	default:
		skipped := fmt.Sprintf("The %s scaling for staging %s is skipped", cat, subject)
		switch cat {
		case CategoryDatabase:
			m.Title = "WARN: Database scaling skipped for: " + subject
			m.Text = skipped + detail
		case CategoryServer:
			m.Title = "WARN: Pod scaling failed for: " + subject
			m.Text = skipped + detail
		default:
			m.Title = fmt.Sprintf("WARN: %s skipped for: %s", cat, subject)
			m.Text = skipped + detail
		}
	}
	return m
}
