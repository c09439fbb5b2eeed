package sender

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/ports"
)

// OutboxDir is the per-day directory drafts are written to.
const OutboxDir = "outbox"

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9.-]+`)

// OutboxSender writes each message as an RFC 5322 draft that a mail client or
// relay can pick up: <dir>/NN-<domain>.eml.
type OutboxSender struct {
	dir    string
	from   *mail.Address
	now    func() time.Time
	logger *slog.Logger
	seq    int
}

var _ ports.Sender = (*OutboxSender)(nil)

// NewOutboxSender writes drafts into dir. fromAddress may be empty, in which case
// the From header carries only the sender name.
func NewOutboxSender(dir string, identity domain.Identity, fromAddress string, now func() time.Time, logger *slog.Logger) *OutboxSender {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxSender{
		dir:    dir,
		from:   &mail.Address{Name: identity.SenderName, Address: fromAddress},
		now:    now,
		logger: logger,
	}
}

// Name identifies the provider.
func (s *OutboxSender) Name() string {
	return "outbox"
}

// Send renders msg into the next numbered draft file.
func (s *OutboxSender) Send(_ context.Context, msg domain.Message) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create outbox: %w", err)
	}
	if s.seq == 0 {
		existing, err := filepath.Glob(filepath.Join(s.dir, "*.eml"))
		if err != nil {
			return fmt.Errorf("list outbox: %w", err)
		}
		s.seq = len(existing)
	}
	s.seq++

	path := filepath.Join(s.dir, fmt.Sprintf("%02d-%s.eml", s.seq, fileSafe(msg.Metadata.Domain)))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create draft: %w", err)
	}

	if err := s.render(f, msg); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close draft %s: %w", path, err)
	}

	s.logger.Info("draft written", "domain", msg.Metadata.Domain, "path", path)
	return nil
}

func (s *OutboxSender) render(w io.Writer, msg domain.Message) error {
	var h mail.Header
	h.SetDate(s.now().UTC())
	h.SetSubject(msg.Subject)
	if s.from.Name != "" || s.from.Address != "" {
		h.SetAddressList("From", []*mail.Address{s.from})
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("X-Outreach-Domain", msg.Metadata.Domain)
	h.Set("X-Outreach-URL", msg.Metadata.URL)
	h.Set("X-Outreach-Domain-Rank", strconv.Itoa(msg.Metadata.DomainRank))
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("generate message id: %w", err)
	}

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("write draft header: %w", err)
	}
	if _, err := io.WriteString(body, msg.Body); err != nil {
		_ = body.Close()
		return fmt.Errorf("write draft body: %w", err)
	}
	if err := body.Close(); err != nil {
		return fmt.Errorf("finish draft: %w", err)
	}
	return nil
}

func fileSafe(d string) string {
	s := unsafeFileChars.ReplaceAllString(domain.NormalizeDomain(d), "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "unknown"
	}
	return s
}
