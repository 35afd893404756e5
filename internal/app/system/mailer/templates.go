// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// PasswordResetData holds data for the password reset email.
type PasswordResetData struct {
	SiteName  string
	ResetLink string
	ExpiresIn string // e.g., "30 minutes"
}

// InvitationData holds data for the invitation email.
type InvitationData struct {
	SiteName    string
	OrgName     string
	InviterName string
	Role        string
	AcceptLink  string
	ExpiresOn   string
}

// BuildPasswordResetEmail creates a reset email with both HTML and text bodies.
func BuildPasswordResetEmail(to string, data PasswordResetData) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "A password reset was requested for your %s account.\n\n", data.SiteName)
	text.WriteString("Use this link to choose a new password:\n")
	text.WriteString(data.ResetLink + "\n\n")
	fmt.Fprintf(&text, "This link expires in %s.\n\n", data.ExpiresIn)
	text.WriteString("If you did not request this, you can safely ignore this email.\n")

	return Email{
		To:       to,
		Subject:  fmt.Sprintf("Reset your %s password", data.SiteName),
		TextBody: text.String(),
		HTMLBody: render(passwordResetTmpl, data),
	}
}

// BuildInvitationEmail creates an invitation email with both HTML and text bodies.
func BuildInvitationEmail(to string, data InvitationData) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "%s invited you to join %s on %s as %s.\n\n", data.InviterName, data.OrgName, data.SiteName, data.Role)
	text.WriteString("Accept the invitation here:\n")
	text.WriteString(data.AcceptLink + "\n\n")
	fmt.Fprintf(&text, "The invitation expires on %s.\n", data.ExpiresOn)

	return Email{
		To:       to,
		Subject:  fmt.Sprintf("You're invited to %s", data.OrgName),
		TextBody: text.String(),
		HTMLBody: render(invitationTmpl, data),
	}
}

var (
	passwordResetTmpl = template.Must(template.New("reset").Parse(passwordResetHTML))
	invitationTmpl    = template.Must(template.New("invitation").Parse(invitationHTML))
)

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}

const layoutHead = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">`

const layoutFoot = `
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

const passwordResetHTML = layoutHead + `
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151;">A password reset was requested for your account.</p>
              <p style="text-align: center;">
                <a href="{{.ResetLink}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; border-radius: 6px;">Choose a new password</a>
              </p>
              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">This link expires in {{.ExpiresIn}}. If you did not request it, ignore this email.</p>` + layoutFoot

const invitationHTML = layoutHead + `
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151;">{{.InviterName}} invited you to join <strong>{{.OrgName}}</strong> as {{.Role}}.</p>
              <p style="text-align: center;">
                <a href="{{.AcceptLink}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; border-radius: 6px;">Accept invitation</a>
              </p>
              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">This invitation expires on {{.ExpiresOn}}.</p>` + layoutFoot
