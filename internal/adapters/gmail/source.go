// Package gmail implements the email source against the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/jobsift/jobsift/internal/core"
)

// Source fetches messages from a Gmail mailbox.
type Source struct {
	service   *gmailapi.Service
	userEmail string
	pageSize  int64
	logger    *zap.Logger
}

// NewSource creates a Gmail source authenticated with an OAuth2 refresh
// token.
func NewSource(
	ctx context.Context,
	clientID string,
	clientSecret string,
	refreshToken string,
	userEmail string,
	pageSize int64,
	logger *zap.Logger,
) (*Source, error) {
	oauth2Config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{gmailapi.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	service, err := gmailapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Source{
		service:   service,
		userEmail: userEmail,
		pageSize:  pageSize,
		logger:    logger,
	}, nil
}

// FetchPage lists message ids matching query, resuming from cursor.
func (s *Source) FetchPage(ctx context.Context, query, cursor string) ([]string, string, error) {
	call := s.service.Users.Messages.List(s.userEmail).
		Q(query).
		MaxResults(s.pageSize).
		Context(ctx)
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, resp.NextPageToken, nil
}

// FetchDetail fetches and parses the full message for one id.
func (s *Source) FetchDetail(ctx context.Context, id string) (*core.EmailMessage, error) {
	msg, err := s.service.Users.Messages.Get(s.userEmail, id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return s.parseMessage(msg)
}

// parseMessage converts a Gmail API message into an EmailMessage.
func (s *Source) parseMessage(msg *gmailapi.Message) (*core.EmailMessage, error) {
	email := &core.EmailMessage{
		ID:        msg.Id,
		ThreadID:  msg.ThreadId,
		Snippet:   msg.Snippet,
		Labels:    msg.LabelIds,
		Timestamp: time.UnixMilli(msg.InternalDate),
	}
	for _, label := range msg.LabelIds {
		if label == "UNREAD" {
			email.Unread = true
		}
	}
	if msg.Payload == nil {
		return email, nil
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Subject":
			email.Subject = header.Value
		case "From":
			email.Sender = header.Value
		case "To":
			email.Recipient = strings.TrimSpace(strings.Split(header.Value, ",")[0])
		}
	}

	if err := s.parseBody(msg.Payload, email); err != nil {
		s.logger.Warn("Failed to decode message body, keeping snippet",
			zap.String("id", msg.Id), zap.Error(err))
	}
	return email, nil
}

// parseBody recursively walks the message parts looking for text/plain
// content.
func (s *Source) parseBody(part *gmailapi.MessagePart, email *core.EmailMessage) error {
	if part.Body != nil && part.Body.Data != "" && part.MimeType == "text/plain" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return fmt.Errorf("failed to decode body data: %w", err)
		}
		if email.Body == "" {
			email.Body = string(data)
		}
	}
	for _, subPart := range part.Parts {
		if err := s.parseBody(subPart, email); err != nil {
			return err
		}
	}
	return nil
}
