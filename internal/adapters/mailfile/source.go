// Package mailfile implements the email source over a local JSON file,
// used by the one-shot CLI and in tests.
package mailfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/core"
)

type fileMessage struct {
	ID        string   `json:"id"`
	ThreadID  string   `json:"thread_id"`
	Subject   string   `json:"subject"`
	Sender    string   `json:"sender"`
	Recipient string   `json:"recipient"`
	Timestamp string   `json:"timestamp"`
	Snippet   string   `json:"snippet"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels"`
	Unread    bool     `json:"unread"`
}

// Source serves emails from a JSON array loaded at construction time.
type Source struct {
	emails   []*core.EmailMessage
	byID     map[string]*core.EmailMessage
	pageSize int
	logger   *zap.Logger
}

// NewSource loads a JSON file of messages.
func NewSource(path string, pageSize int, logger *zap.Logger) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read email file: %w", err)
	}

	var raw []fileMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse email file: %w", err)
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	src := &Source{
		pageSize: pageSize,
		byID:     make(map[string]*core.EmailMessage, len(raw)),
		logger:   logger,
	}
	for i, m := range raw {
		ts, err := time.Parse(time.RFC3339, m.Timestamp)
		if err != nil {
			// Date-only form is common in hand-written fixtures.
			ts, err = time.Parse("2006-01-02", m.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("message %d: bad timestamp %q", i, m.Timestamp)
			}
		}
		id := m.ID
		if id == "" {
			id = fmt.Sprintf("msg-%d", i)
		}
		email := &core.EmailMessage{
			ID:        id,
			ThreadID:  m.ThreadID,
			Subject:   m.Subject,
			Sender:    m.Sender,
			Recipient: m.Recipient,
			Timestamp: ts,
			Snippet:   m.Snippet,
			Body:      m.Body,
			Labels:    m.Labels,
			Unread:    m.Unread,
		}
		src.emails = append(src.emails, email)
		src.byID[id] = email
	}
	logger.Info("Loaded email file", zap.String("path", path), zap.Int("messages", len(src.emails)))
	return src, nil
}

// FetchPage pages through the loaded messages. The query is ignored;
// the file is the query.
func (s *Source) FetchPage(_ context.Context, _ string, cursor string) ([]string, string, error) {
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("bad cursor %q", cursor)
		}
		start = n
	}
	if start >= len(s.emails) {
		return nil, "", nil
	}

	end := start + s.pageSize
	if end > len(s.emails) {
		end = len(s.emails)
	}
	ids := make([]string, 0, end-start)
	for _, e := range s.emails[start:end] {
		ids = append(ids, e.ID)
	}
	next := ""
	if end < len(s.emails) {
		next = strconv.Itoa(end)
	}
	return ids, next, nil
}

// FetchDetail returns the message for one id.
func (s *Source) FetchDetail(_ context.Context, id string) (*core.EmailMessage, error) {
	email, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("unknown message id %q", id)
	}
	return email, nil
}
