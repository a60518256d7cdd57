package service

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"studenthub/internal/config"
	"studenthub/internal/repository"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// EmailService sends notification emails via SendGrid. A missing API key
// disables sending; everything else still works.
type EmailService struct {
	key         string
	from        *sgmail.Email
	userRepo    repository.UserRepository
	commentRepo repository.CommentRepository
}

func NewEmailService(cfg *config.Config, userRepo repository.UserRepository, commentRepo repository.CommentRepository) *EmailService {
	return &EmailService{
		key:         cfg.SendGridAPIKey,
		from:        sgmail.NewEmail("Student Hub", cfg.EmailFrom),
		userRepo:    userRepo,
		commentRepo: commentRepo,
	}
}

// Enabled reports whether the service is configured to send.
func (s *EmailService) Enabled() bool {
	return s.key != "" && s.from.Address != ""
}

// SendReplyEmail emails the parent comment's author about a new reply.
// Called from the worker after the reply notification row is created.
func (s *EmailService) SendReplyEmail(ctx context.Context, recipientID, actorID, commentID int64) error {
	if !s.Enabled() {
		log.Printf("[EmailService] SendReplyEmail skipped: not configured")
		return nil
	}

	recipient, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("get actor: %w", err)
	}
	reply, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("get reply: %w", err)
	}

	actorName := actor.Username
	if actor.DisplayName != nil && *actor.DisplayName != "" {
		actorName = *actor.DisplayName
	}

	subject := fmt.Sprintf("[Student Hub] %s replied to your comment", actorName)
	excerpt := reply.Content
	if len(excerpt) > 200 {
		excerpt = excerpt[:200] + "..."
	}
	text := fmt.Sprintf("%s replied to your comment:\n\n%s\n", actorName, excerpt)
	html := fmt.Sprintf("<p><strong>%s</strong> replied to your comment:</p><blockquote>%s</blockquote>", actorName, excerpt)

	return s.send(recipient.Email, recipient.Username, subject, text, html)
}

func (s *EmailService) send(toAddr, toName, subject, text, html string) error {
	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail(toName, toAddr))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", text),
		sgmail.NewContent("text/html", html),
	)

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		log.Printf("[EmailService] Send FAILED: to=%s err=%v", toAddr, err)
		return fmt.Errorf("send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		log.Printf("[EmailService] Send FAILED: to=%s status=%d body=%s", toAddr, res.StatusCode, res.Body)
		return fmt.Errorf("send email: status %d", res.StatusCode)
	}

	log.Printf("[EmailService] Send OK: to=%s subject=%q", toAddr, subject)
	return nil
}
