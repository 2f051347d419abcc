// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailwatch/mailwatch/domain"

	// Registers decoders for non-utf8 charsets.
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
)

// Substitution literals for absent message parts. They appear verbatim in
// rendered reports.
const (
	UnknownAddress = "Unknown"
	NoSubject      = "No Subject"
	UnknownDate    = "Unknown Date"
	NoContent      = "No content available"
)

// Parse extracts the display form of a raw message. Every field of the
// result is filled, absent headers and bodies carry the substitution
// literals. Plain text bodies win over rendered markup.
func Parse(raw []byte) (*domain.ParsedMessage, error) {
	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("could not parse mail: %w: %w", domain.ErrParse, err)
	}

	header := mr.Header

	subject, err := header.Subject()
	if err != nil {
		subject = header.Get("Subject")
	}
	if strings.TrimSpace(subject) == "" {
		subject = NoSubject
	}

	date := UnknownDate
	if d, err := header.Date(); err == nil && !d.IsZero() {
		date = d.Format(time.RFC1123Z)
	} else if rawDate := strings.TrimSpace(header.Get("Date")); rawDate != "" {
		date = rawDate
	}

	return &domain.ParsedMessage{
		From:    addressField(&header, "From"),
		To:      addressField(&header, "To"),
		Subject: subject,
		Date:    date,
		Body:    bodyText(mr),
	}, nil
}

func addressField(header *gomail.Header, key string) string {
	addresses, err := header.AddressList(key)
	if err != nil || len(addresses) == 0 {
		raw := strings.TrimSpace(header.Get(key))
		if raw == "" {
			return UnknownAddress
		}
		return raw
	}

	parts := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if a.Name != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.Name, a.Address))
		} else {
			parts = append(parts, a.Address)
		}
	}

	return strings.Join(parts, ", ")
}

// bodyText walks the inline parts and keeps the first plain text and the
// first markup body it sees. A broken part ends the walk, whatever arrived
// before it stands.
func bodyText(mr *gomail.Reader) string {
	var plain, markup string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			break
		}

		h, ok := p.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, err := h.ContentType()
		if err != nil {
			continue
		}

		switch strings.ToLower(contentType) {
		case "text/plain":
			if plain != "" {
				continue
			}
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			plain = string(b)
		case "text/html":
			if markup != "" {
				continue
			}
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			markup = string(b)
		}
	}

	if text := normalizeText(plain); text != "" {
		return text
	}

	if markup != "" {
		text, err := HTMLToText(markup)
		if err == nil && text != "" {
			return text
		}
	}

	return NoContent
}

func normalizeText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

func ShortSubject(subject string) string {
	if len(subject) > 30 {
		subject = subject[:30] + "..."
	}
	return subject
}
