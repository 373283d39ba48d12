package email

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/gradebook/internal/config"
	"github.com/jon4hz/gradebook/internal/database"
	mail "github.com/xhit/go-simple-mail/v2"
)

const (
	welcomeTemplate         = "welcome.html"
	passwordChangedTemplate = "password_changed.html"
)

// NotificationService sends account notifications to users.
type NotificationService struct {
	config    *config.EmailConfig
	serverURL string
	send      func(to, subject, body string) error
}

// Notification contains the data rendered into a notification email.
type Notification struct {
	UserName     string
	UserEmail    string
	GradebookURL string
	Time         time.Time
}

// New creates a new email notification service.
func New(cfg *config.EmailConfig, serverURL string) *NotificationService {
	if cfg == nil {
		cfg = &config.EmailConfig{}
	}
	n := &NotificationService{
		config:    cfg,
		serverURL: serverURL,
	}
	n.send = n.sendEmail
	return n
}

// Enabled reports whether emails are sent at all.
func (n *NotificationService) Enabled() bool {
	return n.config.Enabled
}

// SendWelcome sends the welcome email to a freshly registered user.
func (n *NotificationService) SendWelcome(user *database.User) error {
	return n.notify(user, "[Gradebook] Welcome to Gradebook", welcomeTemplate)
}

// SendPasswordChanged informs a user that their password was changed.
func (n *NotificationService) SendPasswordChanged(user *database.User) error {
	return n.notify(user, "[Gradebook] Your password was changed", passwordChangedTemplate)
}

func (n *NotificationService) notify(user *database.User, subject, tmpl string) error {
	if !n.Enabled() {
		log.Debug("Email notifications are disabled, skipping notification")
		return nil
	}

	if user == nil || user.Email == "" {
		log.Warn("User email is empty, skipping notification", "template", tmpl)
		return nil
	}

	body, err := n.generateEmailBody(tmpl, Notification{
		UserName:     user.Username,
		UserEmail:    user.Email,
		GradebookURL: n.serverURL,
		Time:         time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return n.send(user.Email, subject, body)
}

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))

func (n *NotificationService) generateEmailBody(name string, data Notification) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *NotificationService) sendEmail(to, subject, body string) error {
	server := mail.NewSMTPClient()
	server.Host = n.config.SMTPHost
	server.Port = n.config.SMTPPort
	server.Username = n.config.Username
	server.Password = n.config.Password

	switch {
	case n.config.UseSSL:
		server.Encryption = mail.EncryptionSSLTLS
	case n.config.UseTLS:
		server.Encryption = mail.EncryptionSTARTTLS
	default:
		server.Encryption = mail.EncryptionNone
	}

	if n.config.InsecureSkipVerify {
		server.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	smtpClient, err := server.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		if closeErr := smtpClient.Close(); closeErr != nil {
			log.Warn("Failed to close SMTP client", "error", closeErr)
		}
	}()

	fromName := n.config.FromName
	if fromName == "" {
		fromName = "Gradebook"
	}

	msg := mail.NewMSG()
	msg.SetFrom(fmt.Sprintf("%s <%s>", fromName, n.config.FromEmail))
	msg.AddTo(to)
	msg.SetSubject(subject)
	msg.SetBody(mail.TextHTML, body)

	if msg.Error != nil {
		return fmt.Errorf("failed to build email: %w", msg.Error)
	}

	if err := msg.Send(smtpClient); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info("Email notification sent", "to", to, "subject", subject)
	return nil
}
