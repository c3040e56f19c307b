// Package notify fans a swap notice out to the in-app feed and, when
// SMTP is configured, to email. Delivery is best effort: a failed
// channel is logged and the rest still run.
package notify

import (
	"context"
	"fmt"
	"log"

	"traction/api/internal/email"
	"traction/api/internal/store"
)

type Store interface {
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	InsertNotification(ctx context.Context, notification store.Notification) error
}

type Service struct {
	store Store
	email *email.Service
}

func NewService(st Store, emailSvc *email.Service) *Service {
	return &Service{store: st, email: emailSvc}
}

// NotifySwap records an in-app notification for the assignee and mails
// them when email is configured. It returns an error only when no
// channel delivered anything.
func (s *Service) NotifySwap(ctx context.Context, userID, oldTitle, newTitle, leaderComment string) error {
	body := fmt.Sprintf("%q was replaced with %q.", oldTitle, newTitle)
	if leaderComment != "" {
		body += " Note from your leader: " + leaderComment
	}

	delivered := false
	if err := s.store.InsertNotification(ctx, store.Notification{
		UserID: userID,
		Kind:   "task_swap",
		Title:  "One of your tasks was swapped",
		Body:   body,
	}); err != nil {
		log.Printf("in-app swap notification for %s failed: %v", userID, err)
	} else {
		delivered = true
	}

	if s.email != nil && s.email.IsConfigured() {
		user, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			log.Printf("load user %s for swap email failed: %v", userID, err)
		} else if err := s.email.SendSwapEmail(user.Email, user.DisplayName, oldTitle, newTitle, leaderComment); err != nil {
			log.Printf("swap email to %s failed: %v", user.Email, err)
		} else {
			delivered = true
		}
	}

	if !delivered {
		return fmt.Errorf("no notification channel delivered for user %s", userID)
	}
	return nil
}
