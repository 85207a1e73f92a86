package mailbox

import (
	"context"
	"strings"
)

// Message is the part of a mailbox message the pipeline consumes.
type Message struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// Source abstracts a mailbox for the ingestion pipeline. ListCandidates
// returns stable message identities matching the filter expression;
// FetchMessage resolves one identity to its sender and plain-text body.
type Source interface {
	ListCandidates(ctx context.Context, filter string, maxResults int64) ([]string, error)
	FetchMessage(ctx context.Context, id string) (Message, error)
	Close() error
}

// BuildSenderFilter builds a candidate filter expression matching any of the
// allowed sender domains, e.g. "from:a.com OR from:b.com".
func BuildSenderFilter(domains []string) string {
	var terms []string
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		terms = append(terms, "from:"+d)
	}
	return strings.Join(terms, " OR ")
}

// parseSenderFilter recovers the sender domains from a filter expression
// built by BuildSenderFilter. The IMAP source uses it to translate the
// shared filter syntax into server-side search criteria.
func parseSenderFilter(filter string) []string {
	var domains []string
	for _, term := range strings.Split(filter, " OR ") {
		term = strings.TrimSpace(term)
		term = strings.TrimPrefix(term, "from:")
		if term == "" {
			continue
		}
		domains = append(domains, term)
	}
	return domains
}
