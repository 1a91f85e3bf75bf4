package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"briefcast/internal/mailtext"
	"briefcast/internal/types"
)

// IMAPSource fetches newsletter emails from one mailbox over IMAP.
type IMAPSource struct {
	address  string
	password string
	server   string
	port     int
	conn     *client.Client
}

func NewIMAPSource(address, password, server string, port int) *IMAPSource {
	if server == "" {
		server = "imap.gmail.com"
	}
	if port == 0 {
		port = 993
	}
	return &IMAPSource{
		address:  address,
		password: password,
		server:   server,
		port:     port,
	}
}

func (s *IMAPSource) Name() string {
	return s.address
}

func (s *IMAPSource) Connect(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}

	conn, err := client.DialTLS(fmt.Sprintf("%s:%d", s.server, s.port), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.server, err)
	}

	if err := conn.Login(s.address, s.password); err != nil {
		conn.Logout()
		return fmt.Errorf("login failed for %s: %w", s.address, err)
	}

	slog.Info("Connected to mail server", "server", s.server, "account", s.address)
	s.conn = conn
	return nil
}

// Disconnect logs out and drops the connection. Safe to call repeatedly;
// logout errors are swallowed.
func (s *IMAPSource) Disconnect() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Logout(); err != nil {
		slog.Debug("Error during logout", "account", s.address, "error", err)
	}
	s.conn = nil
}

func (s *IMAPSource) Fetch(ctx context.Context, q types.FetchQuery) ([]types.Newsletter, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	folder := q.Folder
	if folder == "" {
		folder = "INBOX"
	}

	if _, err := s.conn.Select(folder, true); err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = time.Now().Add(-q.Lookback)

	uids, err := s.conn.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.conn.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var newsletters []types.Newsletter
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}

		newsletter, err := parseMessage(body)
		if err != nil {
			slog.Warn("Skipping unparseable message", "account", s.address, "error", err)
			continue
		}

		if !MatchesKeywords(newsletter, q.Keywords) {
			continue
		}
		newsletters = append(newsletters, newsletter)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	slog.Info("Fetched newsletters", "account", s.address, "count", len(newsletters))
	return newsletters, nil
}

func parseMessage(r io.Reader) (types.Newsletter, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return types.Newsletter{}, fmt.Errorf("failed to read message: %w", err)
	}

	subject, _ := mr.Header.Subject()
	date, err := mr.Header.Date()
	if err != nil {
		date = time.Now()
	}

	sender := ""
	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		sender = addrs[0].String()
	}

	var plainBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := header.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch contentType {
		case "text/plain":
			plainBody = string(data)
		case "text/html":
			htmlBody = string(data)
		}
	}

	if strings.TrimSpace(plainBody) == "" && htmlBody != "" {
		if extracted, err := mailtext.Extract(htmlBody); err == nil {
			plainBody = extracted
		}
	}
	if htmlBody != "" {
		htmlBody = mailtext.Sanitize(htmlBody)
	}

	return types.Newsletter{
		Subject:  subject,
		Sender:   sender,
		Date:     date,
		Body:     plainBody,
		HTMLBody: htmlBody,
		Source:   types.SourceFromSender(sender),
	}, nil
}
