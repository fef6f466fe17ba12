package service

import (
	"fmt"
	"strings"

	"github.com/templui/formdesk/internal/model"
)

func submissionReceivedEmailTemplate(sub *model.Submission, appName string) (string, string) {
	subject := fmt.Sprintf("[%s] New submission #%d", appName, sub.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "A new form submission was received at %s.\n\n", sub.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	line := func(label string, value *string) {
		if value != nil && *value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, *value)
		}
	}
	line("Short answer", sub.ShortAnswer)
	line("Email", sub.Email)
	line("Phone", sub.Phone)
	if values, ok := sub.MultiSelect.Values(); ok && len(values) > 0 {
		fmt.Fprintf(&b, "Selected: %s\n", strings.Join(values, ", "))
	}
	if sub.HasFile() {
		b.WriteString("Attachment: yes\n")
	}
	fmt.Fprintf(&b, "\nOpen the admin dashboard to see all fields.\n\nBest,\nThe %s Team", appName)

	return subject, b.String()
}
