// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deliver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// Session is a live connection to a desktop chat client.
type Session interface {
	// Ping reports whether the session can send right now.
	Ping(ctx context.Context) error

	// SendFile sends the file at path to recipient as an attachment.
	SendFile(ctx context.Context, recipient, path string) error
}

// ChatChannel sends the digest image through a chat Session. The session is
// probed once at construction; when the probe fails the channel disables
// itself instead of failing every send.
type ChatChannel struct {
	recipient string
	session   Session
	enabled   bool
	logger    zerolog.Logger
}

// NewChatChannel returns a chat channel. It is disabled when cfg is
// disabled, when session is nil, or when the session does not answer.
func NewChatChannel(ctx context.Context, cfg types.ChatConfig, session Session, logger zerolog.Logger) *ChatChannel {
	c := &ChatChannel{
		recipient: cfg.Recipient,
		session:   session,
		logger:    logger.With().Str("channel", "chat").Logger(),
	}
	if !cfg.Enabled {
		return c
	}
	if session == nil {
		c.logger.Warn().Msg("chat enabled but no session configured, disabling channel")
		return c
	}
	if err := session.Ping(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("chat session unavailable, disabling channel")
		return c
	}
	c.enabled = true
	return c
}

func (c *ChatChannel) Name() string        { return "chat" }
func (c *ChatChannel) Enabled() bool       { return c.enabled }
func (c *ChatChannel) RequiresImage() bool { return true }

// Send posts the digest image to the configured recipient.
func (c *ChatChannel) Send(ctx context.Context, p types.Paper, digestPath string) bool {
	log := c.logger.With().Str("paper_id", p.ID).Logger()
	if !c.enabled {
		return false
	}
	if digestPath == "" {
		log.Warn().Msg("no digest image, nothing to send")
		return false
	}
	if err := c.session.SendFile(ctx, c.recipient, digestPath); err != nil {
		log.Error().Err(err).Str("recipient", c.recipient).Msg("chat send failed")
		return false
	}
	log.Info().Str("recipient", c.recipient).Msg("chat message sent")
	return true
}

// BridgeSession talks to a local automation bridge that drives the desktop
// chat client. The bridge answers GET /health and accepts a multipart POST
// /send with a "who" field and a "file" part.
type BridgeSession struct {
	baseURL string
	client  *httputil.Client
}

// NewBridgeSession returns a session for the bridge at baseURL.
func NewBridgeSession(baseURL string, client *httputil.Client) *BridgeSession {
	return &BridgeSession{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Ping checks the bridge health endpoint.
func (b *BridgeSession) Ping(ctx context.Context) error {
	resp, err := b.client.Get(ctx, b.baseURL+"/health", "")
	if err != nil {
		return fmt.Errorf("chat bridge health check: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// SendFile uploads path for delivery to recipient.
func (b *BridgeSession) SendFile(ctx context.Context, recipient, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("who", recipient); err != nil {
		return fmt.Errorf("writing form: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("writing form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("writing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/send", &body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("chat bridge send: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}
