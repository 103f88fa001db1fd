package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-mbox"
	"github.com/rs/zerolog"

	"spam_filter/core/port/out"
	"spam_filter/pkg/apperr"
)

// MboxSource reads message bodies from an mbox archive, ignoring headers.
// The HTML part of a message wins over its plain text part.
type MboxSource struct {
	Path string
	log  zerolog.Logger
}

var _ out.MessageSource = (*MboxSource)(nil)

func NewMboxSource(path string, log zerolog.Logger) *MboxSource {
	return &MboxSource{Path: path, log: log.With().Str("component", "mbox_source").Logger()}
}

func (s *MboxSource) Content(ctx context.Context, maxItems int) ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, apperr.ReadFailure(s.Path, fmt.Errorf("failed to open mbox: %w", err))
	}
	defer f.Close()
	return s.read(ctx, f, maxItems)
}

func (s *MboxSource) read(ctx context.Context, r io.Reader, maxItems int) ([]string, error) {
	reader := mbox.NewReader(r)
	var bodies []string
	for index := 0; maxItems <= 0 || len(bodies) < maxItems; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.MalformedInput(s.Path, fmt.Errorf("failed to read message %d: %w", index, err))
		}
		body, err := messageBody(msg)
		if err != nil {
			s.log.Warn().Err(err).Int("message", index).Msg("skipping unreadable message")
			continue
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}

// messageBody returns the first text/html part, else the first text/plain
// part, else an empty body.
func messageBody(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return "", err
	}
	var html, plain string
	var hasHTML, hasPlain bool
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, _ := h.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			return "", err
		}
		switch strings.ToLower(mediaType) {
		case "text/html":
			if !hasHTML {
				html, hasHTML = string(data), true
			}
		case "text/plain", "":
			if !hasPlain {
				plain, hasPlain = string(data), true
			}
		}
	}
	if hasHTML {
		return html, nil
	}
	return plain, nil
}
