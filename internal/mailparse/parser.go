package mailparse

import (
	"bufio"
	"bytes"
	"mime"
	"strings"
	"time"

	"mail-auto-ticketing/internal/models"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/google/uuid"
)

// UnknownSender is used when a message carries no From header
const UnknownSender = "Unknown"

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// Normalize turns a raw mail message into the record a ticket is created from.
// It never fails: unreadable headers degrade to an empty subject and the
// UnknownSender or verbatim sender.
func Normalize(msg *models.MailMessage, now time.Time) models.NormalizedMessage {
	header := readHeader(msg.RawHeaders)

	sender, address := FormatSender(header.Get("From"))

	return models.NormalizedMessage{
		Timestamp:     now,
		Sender:        sender,
		SenderAddress: address,
		Subject:       DecodeHeader(header.Get("Subject")),
		TraceID:       uuid.New().String(),
	}
}

// FormatSender renders a From header as "Name (address)". A header without a
// display name yields the bare address; a header that is not a single valid
// address is returned trimmed and verbatim. The second value is the parsed
// address, empty when the header could not be parsed.
func FormatSender(from string) (string, string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return UnknownSender, ""
	}

	addr, err := mail.ParseAddress(from)
	if err != nil || addr == nil {
		return DecodeHeader(from), ""
	}

	name := strings.TrimSpace(addr.Name)
	if name == "" {
		return addr.Address, addr.Address
	}
	return name + " (" + addr.Address + ")", addr.Address
}

// DecodeHeader decodes MIME-encoded headers (e.g., "=?UTF-8?B?...?=") to plain text.
// Malformed encodings and unknown charsets fall back to the raw text read as UTF-8.
func DecodeHeader(encoded string) string {
	decoded, err := wordDecoder.DecodeHeader(encoded)
	if err != nil {
		decoded = encoded
	}
	return strings.TrimSpace(strings.ToValidUTF8(decoded, "�"))
}

// readHeader parses the raw header block. When go-message rejects it, the
// header is rebuilt from the lines that look like "Key: value".
func readHeader(raw []byte) mail.Header {
	block := raw
	if !bytes.HasSuffix(block, []byte("\n")) {
		block = append(append([]byte{}, block...), "\r\n"...)
	}
	block = append(append([]byte{}, block...), "\r\n"...)

	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(block)))
	if err != nil {
		h = lenientHeader(raw)
	}
	return mail.Header{Header: message.Header{Header: h}}
}

func lenientHeader(raw []byte) textproto.Header {
	var h textproto.Header
	var key, value string

	flush := func() {
		if key != "" {
			h.Add(key, strings.TrimSpace(value))
		}
		key, value = "", ""
	}

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			break
		}
		if (line[0] == ' ' || line[0] == '\t') && key != "" {
			value += " " + strings.TrimSpace(line)
			continue
		}
		flush()
		if i := strings.IndexByte(line, ':'); i > 0 {
			key, value = strings.TrimSpace(line[:i]), line[i+1:]
		}
	}
	flush()
	return h
}
