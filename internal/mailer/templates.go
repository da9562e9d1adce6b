package mailer

import (
	"bytes"
	"text/template"
	"time"
)

// MeetingDateLayout renders a start time like "03/10 3:0 pm".
const MeetingDateLayout = "01/02 3:4 pm"

var introMeetingTmpl = template.Must(template.New("intro").Parse(`Hi {{.FirstName}},

Thanks for booking time with us. Your meeting request is confirmed.

When:  {{.DateTime}}
Where: {{.Location}}{{if .URL}}
Join:  {{.URL}}{{end}}

We look forward to talking with you.
`))

var passwordResetTmpl = template.Must(template.New("reset").Parse(`Hello,

A password reset was requested for {{.Email}}.

Use this reset token to choose a new password: {{.Token}}

The token expires at {{.ExpiresAt}}. If you did not ask for this, you can ignore this email.
`))

// IntroMeeting describes the meeting confirmed to a new client.
type IntroMeeting struct {
	FirstName string
	Location  string
	URL       string
	DateTime  string
}

// FormatMeetingTime renders t in loc using MeetingDateLayout.
func FormatMeetingTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(MeetingDateLayout)
}

// IntroMeetingMessage builds the welcome email sent after a new client books a meeting.
func IntroMeetingMessage(to string, m IntroMeeting) (Message, error) {
	var body bytes.Buffer
	if err := introMeetingTmpl.Execute(&body, m); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "We received your meeting request", Body: body.String()}, nil
}

// PasswordResetMessage builds the email carrying a password reset token.
func PasswordResetMessage(to, token string, expiresAt time.Time) (Message, error) {
	var body bytes.Buffer
	data := struct {
		Email     string
		Token     string
		ExpiresAt string
	}{to, token, expiresAt.UTC().Format(time.RFC1123)}
	if err := passwordResetTmpl.Execute(&body, data); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Reset your password", Body: body.String()}, nil
}
