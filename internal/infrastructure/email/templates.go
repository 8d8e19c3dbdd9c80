package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/baechuer/member-portal/internal/domain"
)

// message is a rendered email.
type message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

const layoutHTML = `<!doctype html>
<html>
  <body style="font-family:Arial,Helvetica,sans-serif; line-height:1.4;">
    {{template "content" .}}
  </body>
</html>`

var templates = map[string]struct{ text, html string }{
	"review": {
		text: `New registration awaiting review

Name: {{.FullName}}
Email: {{.Email}}
Phone: {{.Phone}}
Company: {{.Company}}
Timezone: {{.Timezone}}
Registered: {{.RegisteredAt.Format "2006-01-02 15:04 MST"}}

Approve: {{.ApproveURL}}
Reject: {{.RejectURL}}
Admin panel: {{.AdminPanelURL}}
`,
		html: `{{define "content"}}
    <h2>New registration awaiting review</h2>
    <table>
      <tr><td>Name</td><td>{{.FullName}}</td></tr>
      <tr><td>Email</td><td>{{.Email}}</td></tr>
      <tr><td>Phone</td><td>{{.Phone}}</td></tr>
      <tr><td>Company</td><td>{{.Company}}</td></tr>
      <tr><td>Timezone</td><td>{{.Timezone}}</td></tr>
    </table>
    <p>
      <a href="{{.ApproveURL}}" style="padding:10px 14px; background:#1a7f37; color:#fff; text-decoration:none; border-radius:6px;">Approve</a>
      <a href="{{.RejectURL}}" style="padding:10px 14px; background:#b42318; color:#fff; text-decoration:none; border-radius:6px;">Reject</a>
    </p>
    <p style="color:#555; font-size:12px;">To assign a representative, use the <a href="{{.AdminPanelURL}}">admin panel</a>.</p>
{{end}}`,
	},
	"approved": {
		text: `Hi {{.FirstName}},

Your account has been approved. You can log in at {{.LoginURL}}
{{with .Representative}}
Your representative:
{{.Name}}
{{.Phone}}
{{.Email}}
{{end}}`,
		html: `{{define "content"}}
    <h2>Your account has been approved</h2>
    <p>Hi {{.FirstName}}, you can now <a href="{{.LoginURL}}">log in</a>.</p>
    {{with .Representative}}
    <p>Your representative:<br/>{{.Name}}<br/>{{.Phone}}<br/><a href="mailto:{{.Email}}">{{.Email}}</a></p>
    {{end}}
{{end}}`,
	},
	"rejected": {
		text: `Hi {{.FirstName}},

Unfortunately your registration was not approved. Reply to this email if you think this is a mistake.
`,
		html: `{{define "content"}}
    <h2>Registration update</h2>
    <p>Hi {{.FirstName}}, unfortunately your registration was not approved.</p>
{{end}}`,
	},
	"reset": {
		text: `Hi {{.FirstName}},

Reset your password by opening this link:

{{.ResetURL}}

The link expires in {{minutes .ExpiresIn}} minutes.
`,
		html: `{{define "content"}}
    <h2>Reset your password</h2>
    <p>Hi {{.FirstName}}, click the button below to reset your password. The link expires in {{minutes .ExpiresIn}} minutes.</p>
    <p><a href="{{.ResetURL}}" style="display:inline-block; padding:10px 14px; text-decoration:none; border-radius:6px; background:#111; color:#fff;">Reset password</a></p>
    <p style="color:#555; font-size:12px;">If the button doesn't work, open this link:<br/><a href="{{.ResetURL}}">{{.ResetURL}}</a></p>
{{end}}`,
	},
	"contact": {
		text: `Contact form message from {{.FromName}} <{{.FromEmail}}>

{{.Message}}
`,
		html: `{{define "content"}}
    <h2>Contact form message</h2>
    <p>From: {{.FromName}} &lt;{{.FromEmail}}&gt;</p>
    <pre style="white-space:pre-wrap;">{{.Message}}</pre>
{{end}}`,
	},
	"confirmation": {
		text: `Hi {{.FromName}},

We received your message and will get back to you soon.

Your message:
{{.Message}}
`,
		html: `{{define "content"}}
    <h2>We received your message</h2>
    <p>Hi {{.FromName}}, thanks for reaching out. We will get back to you soon.</p>
    <pre style="white-space:pre-wrap;">{{.Message}}</pre>
{{end}}`,
	},
}

var funcs = map[string]any{
	"minutes": func(d time.Duration) int { return int(d.Minutes()) },
}

type renderer struct {
	text map[string]*texttemplate.Template
	html map[string]*htmltemplate.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{
		text: make(map[string]*texttemplate.Template, len(templates)),
		html: make(map[string]*htmltemplate.Template, len(templates)),
	}
	for name, t := range templates {
		tt, err := texttemplate.New(name).Funcs(funcs).Parse(t.text)
		if err != nil {
			return nil, fmt.Errorf("parse text template %s: %w", name, err)
		}
		ht, err := htmltemplate.New(name).Funcs(funcs).Parse(layoutHTML)
		if err == nil {
			ht, err = ht.Parse(t.html)
		}
		if err != nil {
			return nil, fmt.Errorf("parse html template %s: %w", name, err)
		}
		r.text[name], r.html[name] = tt, ht
	}
	return r, nil
}

func (r *renderer) render(name, to, subject string, data any) (message, error) {
	var tb, hb bytes.Buffer
	if err := r.text[name].Execute(&tb, data); err != nil {
		return message{}, err
	}
	if err := r.html[name].Execute(&hb, data); err != nil {
		return message{}, err
	}
	return message{To: to, Subject: subject, Text: strings.TrimSpace(tb.String()) + "\n", HTML: hb.String()}, nil
}

func (r *renderer) reviewRequest(req domain.ReviewRequest) (message, error) {
	return r.render("review", req.AdminEmail, "New registration: "+req.FullName, req)
}

func (r *renderer) decision(n domain.DecisionNotice) (message, error) {
	if n.Status == domain.StatusApproved {
		return r.render("approved", n.Email, "Your account has been approved", n)
	}
	return r.render("rejected", n.Email, "Your registration status", n)
}

func (r *renderer) passwordReset(n domain.PasswordResetNotice) (message, error) {
	return r.render("reset", n.Email, "Reset your password", n)
}

func (r *renderer) contactMessage(m domain.ContactMessage) (message, error) {
	return r.render("contact", m.AdminEmail, "Contact form: "+m.FromName, m)
}

func (r *renderer) contactConfirmation(m domain.ContactMessage) (message, error) {
	return r.render("confirmation", m.FromEmail, "We received your message", m)
}
