package email

import (
	"bytes"
	"html/template"
)

var templates = template.Must(template.Must(template.New("layout").Parse(layoutTemplate)).New("bodies").Parse(bodyTemplates))

func renderTemplate(name string, data any) (string, error) {
	t, err := templates.Clone()
	if err != nil {
		return "", err
	}
	if _, err := t.New("content").Parse(`{{template "` + name + `" .}}`); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const layoutTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.AppName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #4f46e5; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #4f46e5; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .code { font-size: 32px; letter-spacing: 8px; font-weight: bold; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
        .link { word-break: break-all; color: #4f46e5; }
    </style>
</head>
<body>
    <div class="header"><h1>{{.AppName}}</h1></div>
    {{template "content" .}}
</body>
</html>`

const bodyTemplates = `
{{define "two_factor"}}
    <p>Hi {{.UserName}},</p>
    <p>Use this code to finish signing in:</p>
    <p class="code">{{.Code}}</p>
    <p>The code expires in {{.Minutes}} minutes and can be used once.</p>
    <div class="footer"><p>If you did not try to sign in, change your password.</p></div>
{{end}}

{{define "password_reset"}}
    <p>Hi {{.UserName}},</p>
    <p>We received a request to reset your password.</p>
    <p><a href="{{.ResetURL}}" class="button">Reset Password</a></p>
    <p>Or copy and paste this link into your browser:</p>
    <p class="link">{{.ResetURL}}</p>
    <p><strong>This link expires in 1 hour.</strong></p>
    <div class="footer"><p>If you didn't request a password reset, you can safely ignore this email.</p></div>
{{end}}

{{define "page_shared"}}
    <p>{{.SharerName}} shared the page <strong>{{.PageTitle}}</strong> with you ({{.Permission}} access).</p>
    <p><a href="{{.PageURL}}" class="button">Open Page</a></p>
{{end}}

{{define "invitation"}}
    <p>{{.InviterName}} invited you to join <strong>{{.WorkspaceName}}</strong> as {{.Role}}.</p>
    <p><a href="{{.InvitationURL}}" class="button">Review Invitation</a></p>
{{end}}
`
