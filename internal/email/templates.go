package email

import (
	"fmt"
	"html"
)

const subjectGreeting = "Thanks for your enquiry"

// Greeting renders the automated first-response email for a new lead.
func Greeting(leadName, fromName string) (subject, htmlBody string) {
	name := html.EscapeString(leadName)
	sender := html.EscapeString(fromName)

	body := fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Thanks for reaching out about hosting your event with us. One of our team
will be in touch shortly to talk through dates, availability and options.</p>
<p>Warm regards,<br>%s</p>
</body></html>`, name, sender)

	return subjectGreeting, body
}
