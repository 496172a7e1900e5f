// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deliver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/pdiddy/arxiv-digest/internal/analyze"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

const (
	subjectPrefix   = "[AI Paper Digest]"
	subjectTitleLen = 30
	maxEmailAuthors = 5
	sslPort         = 465
)

// mailSender is the part of *mail.Client the channel uses.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailChannel mails each digest over SMTP, opening one connection per send.
type EmailChannel struct {
	cfg    types.EmailConfig
	logger zerolog.Logger
	now    func() time.Time

	// dial is swapped in tests.
	dial func(cfg types.EmailConfig) (mailSender, error)
}

// NewEmailChannel returns a channel for cfg.
func NewEmailChannel(cfg types.EmailConfig, logger zerolog.Logger) *EmailChannel {
	return &EmailChannel{
		cfg:    cfg,
		logger: logger.With().Str("channel", "email").Logger(),
		now:    time.Now,
		dial:   dialSMTP,
	}
}

func (e *EmailChannel) Name() string        { return "email" }
func (e *EmailChannel) Enabled() bool       { return e.cfg.Enabled }
func (e *EmailChannel) RequiresImage() bool { return false }

// Send mails p. In image mode the digest is embedded inline; without a
// digest, or when image mode is off, the analysis goes into a rich HTML
// body instead.
func (e *EmailChannel) Send(ctx context.Context, p types.Paper, digestPath string) bool {
	log := e.logger.With().Str("paper_id", p.ID).Logger()
	m, err := e.compose(p, digestPath)
	if err != nil {
		log.Error().Err(err).Msg("composing email failed")
		return false
	}
	if err := e.transmit(ctx, m); err != nil {
		log.Error().Err(err).Msg("sending email failed")
		return false
	}
	log.Info().Str("recipient", e.cfg.Recipient).Bool("image", m.mode == modeImage).Msg("email sent")
	return true
}

// SendSummary mails the end-of-run tally as plain text.
func (e *EmailChannel) SendSummary(ctx context.Context, r types.Report) bool {
	m := message{
		mode:    modeText,
		subject: fmt.Sprintf("%s %s Daily Summary", subjectPrefix, e.now().Format("2006-01-02")),
		plain:   summaryText(r),
	}
	if err := e.transmit(ctx, m); err != nil {
		e.logger.Error().Err(err).Str("run_id", r.RunID).Msg("sending run summary failed")
		return false
	}
	e.logger.Info().Str("run_id", r.RunID).Msg("run summary sent")
	return true
}

type messageMode int

const (
	modeImage messageMode = iota
	modeHTML
	modeText
)

// message is a composed email before it becomes a *mail.Msg.
type message struct {
	mode    messageMode
	subject string
	html    string
	plain   string

	// embeds are files referenced from html as cid:<base name>.
	embeds []string
}

// Subject builds the per-paper subject line.
func Subject(day time.Time, title string) string {
	r := []rune(title)
	if len(r) > subjectTitleLen {
		r = r[:subjectTitleLen]
	}
	return fmt.Sprintf("%s %s - %s...", subjectPrefix, day.Format("2006-01-02"), string(r))
}

func (e *EmailChannel) compose(p types.Paper, digestPath string) (message, error) {
	today := e.now().Format("2006-01-02")
	data := emailData{
		Title:     p.Title,
		ID:        p.ID,
		Authors:   formatAuthors(p.Authors),
		SourceURL: p.SourceURL,
		Today:     today,
	}
	if data.SourceURL == "" {
		data.SourceURL = "https://arxiv.org/abs/" + p.ID
	}
	if !p.PublishedAt.IsZero() {
		data.Published = p.PublishedAt.UTC().Format("2006-01-02")
	}
	m := message{subject: Subject(e.now(), p.Title), plain: plainText(p, data)}

	if e.cfg.SendAsImage && fileExists(digestPath) {
		data.ImageCID = filepath.Base(digestPath)
		html, err := execute(imageEmailTmpl, data)
		if err != nil {
			return message{}, fmt.Errorf("rendering image email: %w", err)
		}
		m.mode, m.html, m.embeds = modeImage, html, []string{digestPath}
		return m, nil
	}

	data.Sections = analyze.ParseSections(p.Analysis)
	if fileExists(p.PreviewPath) {
		data.PreviewCID = filepath.Base(p.PreviewPath)
		m.embeds = []string{p.PreviewPath}
	}
	html, err := execute(htmlEmailTmpl, data)
	if err != nil {
		return message{}, fmt.Errorf("rendering HTML email: %w", err)
	}
	m.mode, m.html = modeHTML, html
	return m, nil
}

func (e *EmailChannel) transmit(ctx context.Context, m message) error {
	msg, err := e.toMsg(m)
	if err != nil {
		return err
	}
	client, err := e.dial(e.cfg)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("SMTP delivery to %s:%d: %w", e.cfg.Host, e.cfg.Port, err)
	}
	return nil
}

func (e *EmailChannel) toMsg(m message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(e.cfg.Username); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(e.cfg.Recipient); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(m.subject)
	msg.SetDate()

	if m.html == "" {
		msg.SetBodyString(mail.TypeTextPlain, m.plain)
		return msg, nil
	}
	msg.SetBodyString(mail.TypeTextHTML, m.html)
	if m.plain != "" {
		msg.AddAlternativeString(mail.TypeTextPlain, m.plain)
	}
	for _, path := range m.embeds {
		msg.EmbedFile(path, mail.WithFileName(filepath.Base(path)))
	}
	return msg, nil
}

func dialSMTP(cfg types.EmailConfig) (mailSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if cfg.Port == sslPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	return mail.NewClient(cfg.Host, opts...)
}

func formatAuthors(authors []string) string {
	if len(authors) == 0 {
		return "Unknown"
	}
	if len(authors) > maxEmailAuthors {
		return strings.Join(authors[:maxEmailAuthors], ", ") + " et al."
	}
	return strings.Join(authors, ", ")
}

func plainText(p types.Paper, data emailData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", p.Title)
	fmt.Fprintf(&b, "arXiv ID: %s\n", p.ID)
	fmt.Fprintf(&b, "Authors: %s\n", data.Authors)
	if data.Published != "" {
		fmt.Fprintf(&b, "Published: %s\n", data.Published)
	}
	fmt.Fprintf(&b, "Link: %s\n", data.SourceURL)
	if a := strings.TrimSpace(p.Analysis); a != "" {
		fmt.Fprintf(&b, "\n%s\n", a)
	}
	return b.String()
}

func summaryText(r types.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", r.RunID)
	if r.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", r.Source)
	}
	fmt.Fprintf(&b, "Started: %s\n", r.Started.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration: %s\n\n", r.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Discovered: %d\nSucceeded: %d\nFailed: %d\n", r.Discovered, r.Succeeded, r.Failed)
	if len(r.Outcomes) > 0 {
		b.WriteString("\n")
	}
	for _, o := range r.Outcomes {
		status := "failed"
		switch {
		case o.Partial():
			status = "partial"
		case o.Delivered():
			status = "delivered"
		}
		fmt.Fprintf(&b, "- %s [%s] %s\n", o.PaperID, status, o.Title)
		if o.Err != "" {
			fmt.Fprintf(&b, "    error: %s\n", o.Err)
		}
	}
	return b.String()
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
