package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/syn-press/syn-api/internal/apperror"
	"github.com/syn-press/syn-api/internal/mailer"
	"github.com/syn-press/syn-api/internal/model"
	"github.com/syn-press/syn-api/internal/repository"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

const maxSubscriberName = 120

// NewsletterOptions configures subscription side effects.
type NewsletterOptions struct {
	AdminInbox  string // destination for new-subscriber notifications
	SendWelcome bool
	SiteURL     string // linked from the welcome email
}

// NewsletterService handles newsletter subscriptions: validation, storage,
// and the notification/welcome emails through the SMTP relay.
type NewsletterService struct {
	subscribers repository.SubscriberRepository
	mail        mailer.Mailer
	opts        NewsletterOptions
	logger      *slog.Logger
}

func NewNewsletterService(
	subscribers repository.SubscriberRepository,
	mail mailer.Mailer,
	opts NewsletterOptions,
	logger *slog.Logger,
) *NewsletterService {
	return &NewsletterService{
		subscribers: subscribers,
		mail:        mail,
		opts:        opts,
		logger:      logger,
	}
}

// Subscribe registers email for the newsletter.
//
// honeypot is a hidden form field; bots fill it, humans don't. A non-empty
// value returns success without storing or sending anything, so the bot
// learns nothing.
func (s *NewsletterService) Subscribe(ctx context.Context, email, name, honeypot string) error {
	if strings.TrimSpace(honeypot) != "" {
		s.logger.Info("newsletter honeypot tripped")
		return nil
	}

	email = strings.TrimSpace(email)
	if !emailRe.MatchString(email) {
		return apperror.ValidationFailed("email", "a valid email address is required")
	}

	name = strings.TrimSpace(name)
	if len(name) > maxSubscriberName {
		name = name[:maxSubscriberName]
	}

	sub := &model.Subscriber{Email: email, Name: name}
	if err := s.subscribers.AddSubscriber(ctx, sub); err != nil {
		return fmt.Errorf("storing subscriber: %w", err)
	}

	display := name
	if display == "" {
		display = "—"
	}
	if err := s.mail.Send(ctx, mailer.Message{
		To:      []string{s.opts.AdminInbox},
		ReplyTo: email,
		Subject: "New newsletter subscription",
		Text:    fmt.Sprintf("New newsletter subscriber\n\nName: %s\nEmail: %s", display, email),
	}); err != nil {
		return fmt.Errorf("notifying admin inbox: %w", err)
	}

	if s.opts.SendWelcome {
		greeting := "Hello!"
		if name != "" {
			greeting = fmt.Sprintf("Hello, %s!", name)
		}
		if err := s.mail.Send(ctx, mailer.Message{
			To:      []string{email},
			Subject: "Subscription confirmed",
			Text: fmt.Sprintf("%s Thanks for subscribing to our newsletter.\n\nVisit us at %s\n\nIf you didn't request this, just ignore this message.",
				greeting, s.opts.SiteURL),
		}); err != nil {
			return fmt.Errorf("sending welcome email: %w", err)
		}
	}

	s.logger.Info("newsletter subscription", slog.String("email", email))
	return nil
}
