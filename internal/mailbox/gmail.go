package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"inbox-scorer-go/internal/config"
)

// GmailSource implements Source using the Gmail REST API.
type GmailSource struct {
	service   *gmail.Service
	userEmail string
}

// NewGmailSource creates a Gmail API source from OAuth2 refresh-token
// credentials.
func NewGmailSource(cfg *config.MailboxConfig) (*GmailSource, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	userEmail := cfg.UserEmail
	if userEmail == "" {
		userEmail = "me"
	}

	return &GmailSource{
		service:   service,
		userEmail: userEmail,
	}, nil
}

// ListCandidates lists message IDs matching the filter expression, which is
// passed through as a Gmail search query.
func (s *GmailSource) ListCandidates(ctx context.Context, filter string, maxResults int64) ([]string, error) {
	call := s.service.Users.Messages.List(s.userEmail).Q(filter).MaxResults(maxResults).Context(ctx)
	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(response.Messages))
	for _, msg := range response.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

// FetchMessage fetches a full message and extracts its sender and plain-text
// body.
func (s *GmailSource) FetchMessage(ctx context.Context, id string) (Message, error) {
	msg, err := s.service.Users.Messages.Get(s.userEmail, id).Format("full").Context(ctx).Do()
	if err != nil {
		return Message{}, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	var sender string
	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			if strings.EqualFold(header.Name, "From") {
				sender = header.Value
				break
			}
		}
	}

	return Message{
		Sender: sender,
		Body:   extractPlainBody(msg.Payload),
	}, nil
}

// Close closes the Gmail source. The Gmail API service needs no explicit
// teardown.
func (s *GmailSource) Close() error {
	return nil
}

// extractPlainBody prefers a text/plain body part and falls back to the
// single-part body. Returns empty when neither is present.
func extractPlainBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	if len(payload.Parts) > 0 {
		for _, part := range payload.Parts {
			if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
				if data, err := decodeBase64URL(part.Body.Data); err == nil {
					return string(data)
				}
			}
		}
		// Nested multipart, e.g. multipart/alternative inside multipart/mixed.
		for _, part := range payload.Parts {
			if body := extractPlainBody(part); body != "" {
				return body
			}
		}
		return ""
	}

	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := decodeBase64URL(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	return ""
}

// decodeBase64URL decodes url-safe base64 with or without padding; the Gmail
// API omits padding.
func decodeBase64URL(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
