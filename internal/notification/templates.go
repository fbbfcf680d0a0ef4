package notification

import (
	"fmt"
	"html"
	"strings"

	"codavert-workers/internal/models"
)

// Template holds the subject and bodies for one event kind. Placeholders
// use the {{key}} form.
type Template struct {
	Subject string
	HTML    string
	Text    string
	SMS     string
}

// Branding fills the company placeholders every template may use.
type Branding struct {
	CompanyName string
	PortalURL   string
}

var templates = map[models.EventKind]Template{
	models.EventApplicationReceived: {
		Subject: "We received your application for {{position}}",
		HTML: `<p>Dear {{name}},</p>
<p>Thank you for applying for the <strong>{{position}}</strong> role at {{company}}. Our team will review your application and get back to you.</p>
<p>Regards,<br>{{company}} Hiring Team</p>`,
		Text: "Dear {{name}},\n\nThank you for applying for the {{position}} role at {{company}}. " +
			"Our team will review your application and get back to you.\n\nRegards,\n{{company}} Hiring Team",
	},
	models.EventOfferLetter: {
		Subject: "Offer letter: {{role}} at {{company}}",
		HTML: `<p>Dear {{name}},</p>
<p>Congratulations! We are pleased to offer you the role of <strong>{{role}}</strong>.</p>
<ul>
<li>Employment type: {{employmentType}}</li>
<li>Stipend: {{stipend}}</li>
<li>Joining date: {{joiningDate}}</li>
<li>Department: {{department}}</li>
<li>Location: {{workLocation}}</li>
</ul>
<p>Please review the attached offer letter and accept the offer on the portal: <a href="{{portalUrl}}">{{portalUrl}}</a></p>
<p>Regards,<br>{{company}} Hiring Team</p>`,
		Text: "Dear {{name}},\n\nCongratulations! We are pleased to offer you the role of {{role}}.\n\n" +
			"Employment type: {{employmentType}}\nStipend: {{stipend}}\nJoining date: {{joiningDate}}\n" +
			"Department: {{department}}\nLocation: {{workLocation}}\n\n" +
			"Accept the offer on the portal: {{portalUrl}}\n\nRegards,\n{{company}} Hiring Team",
		SMS: "{{company}}: congratulations {{name}}, your offer for {{role}} has been emailed to you.",
	},
	models.EventInterviewInvitation: {
		Subject: "Interview invitation for {{position}}",
		HTML: `<p>Dear {{name}},</p>
<p>We would like to invite you to an interview for the <strong>{{position}}</strong> role.</p>
<ul>
<li>Date: {{date}}</li>
<li>Time: {{time}}</li>
<li>Meeting link: <a href="{{meetLink}}">{{meetLink}}</a></li>
</ul>
<p>{{notes}}</p>
<p>Regards,<br>{{company}} Hiring Team</p>`,
		Text: "Dear {{name}},\n\nWe would like to invite you to an interview for the {{position}} role.\n\n" +
			"Date: {{date}}\nTime: {{time}}\nMeeting link: {{meetLink}}\n\n{{notes}}\n\nRegards,\n{{company}} Hiring Team",
		SMS: "{{company}}: interview for {{position}} on {{date}} at {{time}}. Link: {{meetLink}}",
	},
	models.EventRejection: {
		Subject: "Update on your application for {{position}}",
		HTML: `<p>Dear {{name}},</p>
<p>Thank you for your interest in the <strong>{{position}}</strong> role at {{company}}. After careful consideration we will not be moving forward with your application.</p>
<p>{{notes}}</p>
<p>We wish you the best in your search.</p>
<p>Regards,<br>{{company}} Hiring Team</p>`,
		Text: "Dear {{name}},\n\nThank you for your interest in the {{position}} role at {{company}}. " +
			"After careful consideration we will not be moving forward with your application.\n\n{{notes}}\n\n" +
			"We wish you the best in your search.\n\nRegards,\n{{company}} Hiring Team",
	},
	models.EventAccountCreated: {
		Subject: "Your {{company}} staff account",
		HTML: `<p>Dear {{name}},</p>
<p>Welcome aboard! Your staff account has been created.</p>
<ul>
<li>Portal: <a href="{{portalUrl}}">{{portalUrl}}</a></li>
<li>Username: {{username}}</li>
<li>Temporary password: {{password}}</li>
</ul>
<p>You will be asked to change this password when you first sign in.</p>
<p>Regards,<br>{{company}} Team</p>`,
		Text: "Dear {{name}},\n\nWelcome aboard! Your staff account has been created.\n\n" +
			"Portal: {{portalUrl}}\nUsername: {{username}}\nTemporary password: {{password}}\n\n" +
			"You will be asked to change this password when you first sign in.\n\nRegards,\n{{company}} Team",
	},
}

// Rendered is a template filled for one event.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
	SMS     string
}

// Render fills the template for evt. HTML values are escaped.
func Render(evt models.Event, brand Branding) (*Rendered, error) {
	tmpl, ok := templates[evt.Kind]
	if !ok {
		return nil, fmt.Errorf("no template for event %q", evt.Kind)
	}

	data := templateData(evt, brand)
	escaped := make(map[string]interface{}, len(data))
	for k, v := range data {
		escaped[k] = html.EscapeString(fmt.Sprint(v))
	}

	return &Rendered{
		Subject: renderTemplate(tmpl.Subject, data),
		HTML:    renderTemplate(tmpl.HTML, escaped),
		Text:    renderTemplate(tmpl.Text, data),
		SMS:     renderTemplate(tmpl.SMS, data),
	}, nil
}

func templateData(evt models.Event, brand Branding) map[string]interface{} {
	a := evt.Applicant
	data := map[string]interface{}{
		"name":           a.FullName,
		"email":          a.Email,
		"position":       a.Position,
		"company":        brand.CompanyName,
		"portalUrl":      brand.PortalURL,
		"role":           a.Hire.AssignedRole,
		"employmentType": a.Hire.EmploymentType,
		"joiningDate":    a.Hire.JoiningDate,
		"department":     a.Hire.Department,
		"workLocation":   a.Hire.WorkLocation,
		"notes":          evt.Notes,
	}
	if a.Hire.Stipend != nil {
		data["stipend"] = fmt.Sprintf("%.2f", *a.Hire.Stipend)
	}
	if evt.Interview != nil {
		data["date"] = evt.Interview.Date
		data["time"] = evt.Interview.Time
		data["meetLink"] = evt.Interview.MeetLink
		if evt.Interview.Notes != "" {
			data["notes"] = evt.Interview.Notes
		}
	}
	if evt.Credentials != nil {
		data["username"] = evt.Credentials.Username
		data["password"] = evt.Credentials.TemporaryPassword
	}
	return data
}

func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Placeholders without data render empty.
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
