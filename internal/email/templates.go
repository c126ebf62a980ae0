package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type emailData struct {
	Title       string
	Heading     string
	Name        string
	Company     string
	Body        template.HTML
	CTALabel    string
	CTAURL      string
	TemplateKey string
}

// bodyCopy is the per-template-key paragraph. Keys without copy fall back
// to the generic nurture body.
var bodyCopy = map[string]string{
	"cadence_step_0":              "Thanks for reaching out. We reviewed your submission and put together the next steps below.",
	"cadence_step_4":              "We are halfway through the material we wanted to share. If a conversation would be easier, grab a time below.",
	"cadence_step_8":              "This is our last scheduled note. You can always reply to pick the thread back up.",
	"auto_reply_pricing_question": "Good question. Pricing depends on volume and channel mix; the short version is attached below, and a call gets you an exact number.",
	"auto_reply_objection":        "That concern comes up a lot and it is a fair one. Here is how other teams have handled it.",
	"auto_reply_unclear":          "We were not quite sure what you meant. Could you tell us a bit more, or pick a time to talk it through?",
	"booking_link":                "Here is a direct link to the calendar. Pick whatever slot suits you.",
	"booked_asset_pack":           "Great news, the meeting is locked in. The materials below cover what we will walk through.",
}

func renderEmail(name string, data emailData) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
