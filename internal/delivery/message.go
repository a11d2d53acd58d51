package delivery

import (
	"fmt"
	"html"
	"strings"

	"github.com/Kerhoff/ResidentHub/internal/models"
)

const eventDateLayout = "Mon 2 Jan 2006, 15:04"

// PassSubject is the email subject line for a pass
func PassSubject(pass *models.Pass) string {
	return "Your pass for " + pass.EventTitle
}

// PassText renders the plain-text body shared by email and WhatsApp
func PassText(pass *models.Pass, link string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hi %s,\n\n", pass.HolderName)
	fmt.Fprintf(&b, "Here is your pass for %s.\n", pass.EventTitle)
	fmt.Fprintf(&b, "When: %s\n", pass.EventDate.Format(eventDateLayout))
	if pass.Venue != "" {
		fmt.Fprintf(&b, "Where: %s\n", pass.Venue)
	}
	if pass.Flat != "" {
		fmt.Fprintf(&b, "Flat: %s\n", pass.Flat)
	}

	if len(pass.Items) > 0 {
		b.WriteString("\nOrder:\n")
		for _, it := range pass.Items {
			fmt.Fprintf(&b, "  %s x %d\n", it.Name, it.Plates)
		}
	}
	fmt.Fprintf(&b, "\nPlates: %d\nAmount: %d", pass.TotalPlates, pass.TotalAmount)
	if pass.Paid {
		b.WriteString(" (paid)")
	} else {
		b.WriteString(" (unpaid)")
	}

	fmt.Fprintf(&b, "\n\nPass code: %s\nShow this link at the gate: %s\n", pass.Code, link)
	return b.String()
}

// PassHTML renders the HTML email body; the QR image is referenced by content id
func PassHTML(pass *models.Pass, link, qrContentID string) string {
	var b strings.Builder

	b.WriteString("<p>Hi " + html.EscapeString(pass.HolderName) + ",</p>")
	b.WriteString("<p>Here is your pass for <strong>" + html.EscapeString(pass.EventTitle) + "</strong>.</p>")
	b.WriteString("<p>" + pass.EventDate.Format(eventDateLayout))
	if pass.Venue != "" {
		b.WriteString(" at " + html.EscapeString(pass.Venue))
	}
	b.WriteString("</p>")

	if len(pass.Items) > 0 {
		b.WriteString("<ul>")
		for _, it := range pass.Items {
			fmt.Fprintf(&b, "<li>%s x %d</li>", html.EscapeString(it.Name), it.Plates)
		}
		b.WriteString("</ul>")
	}
	fmt.Fprintf(&b, "<p>Plates: %d, amount: %d</p>", pass.TotalPlates, pass.TotalAmount)
	if qrContentID != "" {
		b.WriteString(`<p><img src="cid:` + qrContentID + `" alt="` + html.EscapeString(pass.Code) + `"></p>`)
	}
	b.WriteString(`<p>Pass code <code>` + html.EscapeString(pass.Code) + `</code>. <a href="` + html.EscapeString(link) + `">Open pass</a></p>`)
	return b.String()
}
