// Package email provides email sending capabilities via SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

var ErrNotConfigured = errors.New("email not configured")

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	AppName  string
	BaseURL  string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

// NewService creates a new email service
func NewService(config Config) *Service {
	if config.AppName == "" {
		config.AppName = "Notespace"
	}
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendHTMLEmail sends a multipart/alternative message with a plain text
// fallback.
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	return s.send(s.server, s.auth, s.config.From, to, s.buildMessage(to, subject, htmlBody))
}

func (s *Service) buildMessage(to []string, subject, htmlBody string) []byte {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	boundary := "boundary-notespace"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", sanitizeHeader(subject))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.Bytes()
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

type TwoFactorData struct {
	AppName  string
	UserName string
	Code     string
	Minutes  int
}

type PasswordResetData struct {
	AppName  string
	UserName string
	ResetURL string
}

type PageSharedData struct {
	AppName    string
	SharerName string
	PageTitle  string
	Permission string
	PageURL    string
}

type InvitationData struct {
	AppName       string
	InviterName   string
	WorkspaceName string
	Role          string
	InvitationURL string
}

func (s *Service) SendTwoFactorCode(to, userName, code string, minutes int) error {
	html, err := renderTemplate("two_factor", TwoFactorData{AppName: s.config.AppName, UserName: userName, Code: code, Minutes: minutes})
	if err != nil {
		return fmt.Errorf("render two factor template: %w", err)
	}
	return s.SendHTMLEmail([]string{to}, "Your "+s.config.AppName+" sign-in code", html)
}

func (s *Service) SendPasswordResetEmail(to, userName, token string) error {
	resetURL := s.config.BaseURL + "/reset-password?token=" + token
	html, err := renderTemplate("password_reset", PasswordResetData{AppName: s.config.AppName, UserName: userName, ResetURL: resetURL})
	if err != nil {
		return fmt.Errorf("render password reset template: %w", err)
	}
	return s.SendHTMLEmail([]string{to}, "Reset your "+s.config.AppName+" password", html)
}

func (s *Service) SendPageSharedEmail(to, sharerName, pageTitle, permission, pageID string) error {
	html, err := renderTemplate("page_shared", PageSharedData{
		AppName:    s.config.AppName,
		SharerName: sharerName,
		PageTitle:  pageTitle,
		Permission: permission,
		PageURL:    s.config.BaseURL + "/pages/" + pageID,
	})
	if err != nil {
		return fmt.Errorf("render page shared template: %w", err)
	}
	return s.SendHTMLEmail([]string{to}, sharerName+" shared \""+pageTitle+"\" with you", html)
}

func (s *Service) SendInvitationEmail(to, inviterName, workspaceName, role string) error {
	html, err := renderTemplate("invitation", InvitationData{
		AppName:       s.config.AppName,
		InviterName:   inviterName,
		WorkspaceName: workspaceName,
		Role:          role,
		InvitationURL: s.config.BaseURL + "/invitations",
	})
	if err != nil {
		return fmt.Errorf("render invitation template: %w", err)
	}
	return s.SendHTMLEmail([]string{to}, "You are invited to "+workspaceName, html)
}
