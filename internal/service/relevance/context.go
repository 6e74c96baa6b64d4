package relevance

import (
	"fmt"
	"strings"
)

// BuildContext renders the prompt handed to a text generator: the query,
// the matched entries and the answering rules
func BuildContext(query string, entries []ServiceEntry) string {
	var b strings.Builder

	b.WriteString("You are Contact Guardian, an assistant that provides verified Australian government contact information.\n\n")
	fmt.Fprintf(&b, "User Query: %q\n\n", query)
	b.WriteString("Verified Government Contacts:\n")

	if len(entries) == 0 {
		b.WriteString("(none found)\n")
	}
	for i, e := range entries {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, displayName(e))
		fmt.Fprintf(&b, "Agency: %s\n", e.Agency)
		fmt.Fprintf(&b, "Phone: %s\n", e.PhoneNumber)
		fmt.Fprintf(&b, "Category: %s\n", e.Category)
		fmt.Fprintf(&b, "Region: %s\n", e.Region)
	}

	b.WriteString("\nInstructions:\n")
	b.WriteString("- Only provide information from the verified contacts above\n")
	b.WriteString("- Format phone numbers clearly\n")
	b.WriteString("- Include agency names\n")
	b.WriteString("- Mark all contacts as verified government contacts\n")
	b.WriteString("- If no relevant contacts are listed, suggest emergency number 000\n")
	b.WriteString("- Be helpful and concise\n")

	return b.String()
}

func displayName(e ServiceEntry) string {
	if e.ServiceName != "" {
		return e.ServiceName
	}
	return e.Agency
}
