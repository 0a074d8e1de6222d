package services

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	ttemplate "text/template"
	"time"

	"luxscaler/internal/config"
)

type IMailService interface {
	SendMailToNotifyUser(to, subject, body, ctaText, ctaURL string) error
	SendMailToResetPassword(to, token string) error
	// SendAccessLink delivers the one-time link of an admin-provisioned account.
	SendAccessLink(to, name, token string) error
}

type smtpMailService struct {
	cfg     config.SMTPConfig
	appName string
	baseURL string
	html    *template.Template
	text    *ttemplate.Template
	now     func() time.Time
	deliver func(to string, msg []byte) error
}

func NewSMTPMailService(cfg *config.Config) (IMailService, error) {
	html, err := template.New("html").Parse(baseHTMLTemplate)
	if err != nil {
		return nil, err
	}
	text, err := ttemplate.New("text").Parse(plainTextTemplate)
	if err != nil {
		return nil, err
	}

	s := &smtpMailService{
		cfg:     cfg.SMTP,
		appName: cfg.App.Name,
		baseURL: cfg.App.BaseURL,
		html:    html,
		text:    text,
		now:     time.Now,
	}
	s.deliver = s.dial
	return s, nil
}

// ------------------- Public API -------------------

func (s *smtpMailService) SendMailToNotifyUser(to, subject, body, ctaText, ctaURL string) error {
	return s.sendRendered(to, EmailData{
		Title:     subject,
		Intro:     body,
		ButtonURL: ctaURL,
		ButtonTxt: ctaText,
	})
}

func (s *smtpMailService) SendMailToResetPassword(to, token string) error {
	return s.sendRendered(to, EmailData{
		Title:     "Reset your password",
		Intro:     "We received a request to reset your password. Click the button below to continue. If you did not request this, you can safely ignore this email.",
		ButtonURL: s.recoveryLink(token),
		ButtonTxt: "Reset Password",
	})
}

func (s *smtpMailService) SendAccessLink(to, name, token string) error {
	greeting := "Hi"
	if name = strings.TrimSpace(name); name != "" {
		greeting = "Hi " + name
	}
	return s.sendRendered(to, EmailData{
		Title:     fmt.Sprintf("Your %s account is ready", s.appName),
		Intro:     greeting + ", an administrator created your account. Use the button below within 24 hours to set your password and sign in.",
		ButtonURL: s.recoveryLink(token),
		ButtonTxt: "Set Password",
	})
}

func (s *smtpMailService) recoveryLink(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, url.QueryEscape(token))
}

// ------------------- Rendering -------------------

type EmailData struct {
	Title     string
	Intro     string
	ButtonURL string
	ButtonTxt string
	AppName   string
	Year      int
}

const baseHTMLTemplate = `<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body { margin: 0; padding: 0; background: #0b1120; color: #e2e8f0; font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; }
    .wrapper { width: 100%; padding: 40px 16px; box-sizing: border-box; }
    .container { max-width: 600px; margin: 0 auto; background: #111827; border-radius: 14px; overflow: hidden; }
    .header { padding: 28px 32px; border-bottom: 1px solid #1f2937; }
    .brand { font-weight: 700; font-size: 20px; letter-spacing: 1px; color: #fbbf24; text-transform: uppercase; }
    .hero { padding: 36px 32px; }
    h1 { margin: 0 0 16px; font-size: 26px; color: #f8fafc; }
    p { margin: 0 0 20px; line-height: 1.7; font-size: 16px; color: #cbd5e1; }
    .btn { display: inline-block; padding: 14px 30px; background: #f59e0b; color: #111827 !important; text-decoration: none; border-radius: 10px; font-weight: 600; }
    .muted { color: #94a3b8; font-size: 13px; margin: 24px 0 0; word-break: break-all; }
    .footer { padding: 20px 32px; color: #64748b; font-size: 13px; text-align: center; border-top: 1px solid #1f2937; }
  </style>
</head>
<body>
  <div class="wrapper">
    <div class="container">
      <div class="header"><div class="brand">{{.AppName}}</div></div>
      <div class="hero">
        <h1>{{.Title}}</h1>
        <p>{{.Intro}}</p>
        {{if .ButtonURL}}
          <a class="btn" href="{{.ButtonURL}}">{{.ButtonTxt}}</a>
          <p class="muted">If the button does not work, open this link: {{.ButtonURL}}</p>
        {{end}}
      </div>
      <div class="footer">&copy; {{.Year}} {{.AppName}}</div>
    </div>
  </div>
</body>
</html>`

const plainTextTemplate = `{{.Title}}

{{.Intro}}
{{if .ButtonURL}}
{{.ButtonTxt}}: {{.ButtonURL}}
{{end}}
{{.AppName}} (c) {{.Year}}
`

func (s *smtpMailService) renderEmail(data EmailData) (html string, text string, err error) {
	data.AppName = s.appName
	data.Year = s.now().Year()

	var hb, tb bytes.Buffer
	if err = s.html.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err = s.text.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

func (s *smtpMailService) sendRendered(to string, data EmailData) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("mail: empty recipient")
	}
	html, text, err := s.renderEmail(data)
	if err != nil {
		return fmt.Errorf("mail: render: %w", err)
	}
	if err := s.deliver(to, s.buildMessage(to, data.Title, html, text)); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}

// ------------------- SMTP Send -------------------

func (s *smtpMailService) buildMessage(to, subject, htmlBody, textBody string) []byte {
	now := s.now()
	boundary := fmt.Sprintf("alt_%d", now.UnixNano())

	var msg bytes.Buffer
	write := func(format string, a ...any) { _, _ = fmt.Fprintf(&msg, format, a...) }

	write("From: %s\r\n", s.formatFromHeader())
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	write("Date: %s\r\n", now.Format(time.RFC1123Z))
	write("MIME-Version: 1.0\r\n")
	write("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	write("--%s\r\n", boundary)
	write("Content-Type: text/plain; charset=UTF-8\r\n")
	write("Content-Transfer-Encoding: 8bit\r\n\r\n")
	write("%s\r\n\r\n", textBody)

	write("--%s\r\n", boundary)
	write("Content-Type: text/html; charset=UTF-8\r\n")
	write("Content-Transfer-Encoding: 8bit\r\n\r\n")
	write("%s\r\n\r\n", htmlBody)

	write("--%s--\r\n", boundary)
	return msg.Bytes()
}

func (s *smtpMailService) dial(to string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	tlsCfg := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}

	var conn net.Conn
	var err error
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if s.cfg.UseSSL {
		// implicit TLS, usually 465
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if !s.cfg.UseSSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err = c.StartTLS(tlsCfg); err != nil {
				return err
			}
		} else if s.cfg.RequireTLS {
			return errors.New("server does not support STARTTLS and RequireTLS=true")
		}
	}

	if s.cfg.Username != "" {
		if err = c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return err
		}
	}
	if err = c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err = c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}

func (s *smtpMailService) formatFromHeader() string {
	name := strings.TrimSpace(s.cfg.FromName)
	if name == "" {
		return s.cfg.From
	}
	return fmt.Sprintf("%s <%s>", mime.BEncoding.Encode("UTF-8", name), s.cfg.From)
}
