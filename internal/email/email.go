// Package email sends notification mail over SMTP.
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"
)

// Config holds email configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	UseTLS   bool
}

// Service handles email sending
type Service struct {
	config    *Config
	templates map[string]*template.Template
}

// NewService creates a new email service
func NewService(config *Config) *Service {
	s := &Service{
		config:    config,
		templates: make(map[string]*template.Template),
	}
	s.loadTemplates()
	return s
}

// Enabled reports whether an SMTP host is configured.
func (s *Service) Enabled() bool {
	return s.config != nil && s.config.Host != ""
}

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

const layout = `
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #4f46e5; color: white; padding: 24px; border-radius: 8px 8px 0 0; }
        .content { background: #f9fafb; padding: 24px; border-radius: 0 0 8px 8px; }
        .card { background: white; border-radius: 8px; padding: 16px; margin: 16px 0; }
        .btn { display: inline-block; background: #4f46e5; color: white; padding: 12px 20px; text-decoration: none; border-radius: 6px; }
        .footer { margin-top: 24px; font-size: 12px; color: #6b7280; text-align: center; }
    </style>
</head>
<body>
<div class="container">
    <div class="header"><h2>{{template "title" .}}</h2></div>
    <div class="content">{{template "body" .}}</div>
    <div class="footer">ORA Collab</div>
</div>
</body>
</html>`

func (s *Service) loadTemplates() {
	s.register("task_assigned", `
{{define "title"}}New Task Assigned{{end}}
{{define "body"}}
<p>Hi {{.AssigneeName}},</p>
<p>You have been assigned a task in <strong>{{.ProjectName}}</strong>.</p>
<div class="card">
    <h3>{{.TaskTitle}}</h3>
    <p><strong>Priority:</strong> {{.Priority}}</p>
    {{if .DueDate}}<p><strong>Due Date:</strong> {{.DueDate}}</p>{{end}}
</div>
<a href="{{.TaskURL}}" class="btn">View Task</a>
{{end}}`)

	s.register("due_date_reminder", `
{{define "title"}}{{if .Overdue}}Task Overdue{{else}}Task Due Soon{{end}}{{end}}
{{define "body"}}
<p>Hi {{.UserName}},</p>
<div class="card">
    <h3>{{.TaskTitle}}</h3>
    <p><strong>Due Date:</strong> {{.DueDate}}</p>
</div>
<a href="{{.TaskURL}}" class="btn">View Task</a>
{{end}}`)

	s.register("mention", `
{{define "title"}}You were mentioned{{end}}
{{define "body"}}
<p>Hi {{.UserName}},</p>
<p><strong>{{.MentionedBy}}</strong> mentioned you in <strong>{{.ProjectName}}</strong>:</p>
<div class="card">{{.CommentContent}}</div>
<a href="{{.ProjectURL}}" class="btn">View Comment</a>
{{end}}`)
}

func (s *Service) register(name, body string) {
	s.templates[name] = template.Must(template.Must(template.New(name).Parse(layout)).Parse(body))
}

// Render executes a named template.
func (s *Service) Render(templateName string, data interface{}) (string, error) {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return "", fmt.Errorf("template not found: %s", templateName)
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return body.String(), nil
}

// Send delivers a message. Without a configured host it is a no-op.
func (s *Service) Send(email *Email) error {
	if !s.Enabled() {
		log.Println("[Email] not configured, skipping send")
		return nil
	}

	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(email.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	if email.HTMLBody != "" {
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		msg.WriteString(email.HTMLBody)
	} else {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(email.Body)
	}

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	if !s.config.UseTLS {
		return smtp.SendMail(addr, auth, s.config.From, email.To, msg.Bytes())
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("TLS dial error: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("SMTP client error: %w", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("auth error: %w", err)
	}
	if err = client.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail error: %w", err)
	}
	for _, rcpt := range email.To {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt error: %w", err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data error: %w", err)
	}
	if _, err = w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close error: %w", err)
	}
	return client.Quit()
}

// SendWithTemplate sends an email using a template
func (s *Service) SendWithTemplate(to []string, subject, templateName string, data interface{}) error {
	body, err := s.Render(templateName, data)
	if err != nil {
		return err
	}
	return s.Send(&Email{
		To:       to,
		Subject:  subject,
		HTMLBody: body,
	})
}

// ============================================
// Convenience Methods
// ============================================

type TaskAssignedData struct {
	AssigneeName string
	ProjectName  string
	TaskTitle    string
	Priority     string
	DueDate      string
	TaskURL      string
}

func (s *Service) SendTaskAssigned(to string, data TaskAssignedData) error {
	return s.SendWithTemplate(
		[]string{to},
		fmt.Sprintf("[ORA] Task Assigned: %s", data.TaskTitle),
		"task_assigned",
		data,
	)
}

type DueDateReminderData struct {
	UserName  string
	TaskTitle string
	DueDate   string
	Overdue   bool
	TaskURL   string
}

func (s *Service) SendDueDateReminder(to string, data DueDateReminderData) error {
	subject := fmt.Sprintf("[ORA] Task due soon: %s", data.TaskTitle)
	if data.Overdue {
		subject = fmt.Sprintf("[ORA] Task overdue: %s", data.TaskTitle)
	}
	return s.SendWithTemplate([]string{to}, subject, "due_date_reminder", data)
}

type MentionData struct {
	UserName       string
	MentionedBy    string
	ProjectName    string
	CommentContent string
	ProjectURL     string
}

func (s *Service) SendMention(to string, data MentionData) error {
	return s.SendWithTemplate(
		[]string{to},
		fmt.Sprintf("[ORA] %s mentioned you in %s", data.MentionedBy, data.ProjectName),
		"mention",
		data,
	)
}
