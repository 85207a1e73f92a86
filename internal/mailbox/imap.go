package mailbox

import (
	"context"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"

	"inbox-scorer-go/internal/config"
)

// IMAPSource implements Source over an IMAP connection. Message UIDs serve
// as the stable identities; the INBOX is opened read-only and bodies are
// fetched with PEEK so scanning never flags messages as seen.
type IMAPSource struct {
	client *client.Client
}

// NewIMAPSource connects and authenticates to the IMAP server.
func NewIMAPSource(cfg *config.MailboxConfig) (*IMAPSource, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPSource{client: c}, nil
}

// ListCandidates searches the INBOX for messages from any of the sender
// domains in the filter expression and returns their UIDs.
func (s *IMAPSource) ListCandidates(ctx context.Context, filter string, maxResults int64) ([]string, error) {
	if _, err := s.client.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	uids, err := s.client.UidSearch(senderCriteria(parseSenderFilter(filter)))
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	if maxResults > 0 && int64(len(uids)) > maxResults {
		uids = uids[:maxResults]
	}

	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}
	return ids, nil
}

// senderCriteria builds a disjunction of FROM-header criteria, one per
// domain. IMAP has no native OR list, so the domains are folded into nested
// OR pairs.
func senderCriteria(domains []string) *imap.SearchCriteria {
	if len(domains) == 0 {
		return imap.NewSearchCriteria()
	}

	criteria := fromCriteria(domains[0])
	for _, domain := range domains[1:] {
		combined := imap.NewSearchCriteria()
		combined.Or = [][2]*imap.SearchCriteria{{criteria, fromCriteria(domain)}}
		criteria = combined
	}
	return criteria
}

func fromCriteria(domain string) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.Header = textproto.MIMEHeader{"From": {domain}}
	return criteria
}

// FetchMessage fetches one message by UID and extracts sender and plain-text
// body.
func (s *IMAPSource) FetchMessage(ctx context.Context, id string) (Message, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return Message{}, fmt.Errorf("invalid message UID %q: %w", id, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqset, items, messages)
	}()

	var result Message
	var found bool
	for msg := range messages {
		found = true
		if msg.Envelope != nil && len(msg.Envelope.From) > 0 {
			result.Sender = msg.Envelope.From[0].Address()
		}
		if r := msg.GetBody(section); r != nil {
			body, err := extractPlainText(r)
			if err != nil {
				<-done
				return result, fmt.Errorf("failed to parse message %s: %w", id, err)
			}
			result.Body = body
		}
	}

	if err := <-done; err != nil {
		return Message{}, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	if !found {
		return Message{}, fmt.Errorf("message %s not found", id)
	}
	return result, nil
}

// Close logs out of the IMAP session.
func (s *IMAPSource) Close() error {
	return s.client.Logout()
}

// extractPlainText reads a MIME entity, preferring a text/plain part of a
// multipart message and falling back to the single-part body. Charset
// decoding is handled by go-message; unknown charsets degrade to the raw
// bytes rather than failing the message.
func extractPlainText(r io.Reader) (string, error) {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return "", fmt.Errorf("failed to read message: %w", err)
	}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) {
				return "", fmt.Errorf("failed to read part: %w", err)
			}

			contentType := part.Header.Get("Content-Type")
			if strings.Contains(contentType, "text/plain") {
				content, err := io.ReadAll(part.Body)
				if err != nil {
					return "", fmt.Errorf("failed to read part body: %w", err)
				}
				return string(content), nil
			}
		}
		return "", nil
	}

	content, err := io.ReadAll(entity.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read message body: %w", err)
	}
	return string(content), nil
}
