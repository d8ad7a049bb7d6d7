package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
)

var ErrNoResetLink = errors.New("message body carries no password reset link")

var (
	angleAddrRegexp = regexp.MustCompile(`<([^<>]+)>`)
	resetLinkRegexp = regexp.MustCompile(`https://[^\s"'<>]*resetpassword[^\s"'<>]*`)
)

const resetLinkHost = "signin.aws.amazon.com"

// Message is a parsed inbound email. RawBody keeps the undecoded MIME
// body so the message can be forwarded with attachments intact.
type Message struct {
	From        string
	To          string
	Subject     string
	ContentType string
	Body        string
	RawBody     []byte
}

// ParseMessage decodes a raw RFC 5322 message. The textual body is
// pulled from the first text part of a multipart message, or from the
// whole body otherwise, honoring quoted-printable transfer encoding.
func ParseMessage(raw []byte) (*Message, error) {
	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}

	dec := new(mime.WordDecoder)

	subject := m.Header.Get("Subject")
	if decoded, err := dec.DecodeHeader(subject); err == nil {
		subject = decoded
	}

	msg := &Message{
		From:        m.Header.Get("From"),
		To:          m.Header.Get("To"),
		Subject:     subject,
		ContentType: m.Header.Get("Content-Type"),
		RawBody:     rawBody(raw),
	}

	msg.Body = textBody(m)

	return msg, nil
}

// Recipient returns the address inside the To header's angle brackets,
// or the trimmed header value when the header carries a bare address.
func (m *Message) Recipient() string {
	if match := angleAddrRegexp.FindStringSubmatch(m.To); match != nil {
		return strings.TrimSpace(match[1])
	}

	return strings.TrimSpace(m.To)
}

// ResetLink finds the password reset link in the body. Only links whose
// host is the console sign-in domain are accepted.
func (m *Message) ResetLink() (string, error) {
	body := UnescapeQuotedPrintable(m.Body)

	for _, candidate := range resetLinkRegexp.FindAllString(body, -1) {
		u, err := url.Parse(candidate)
		if err != nil {
			continue
		}

		if u.Host == resetLinkHost && strings.Contains(u.Path, "resetpassword") {
			return candidate, nil
		}
	}

	return "", ErrNoResetLink
}

// UnescapeQuotedPrintable undoes soft line breaks and escaped equals
// signs so links split across lines match as a single token.
func UnescapeQuotedPrintable(s string) string {
	s = strings.ReplaceAll(s, "=\r\n", "")
	s = strings.ReplaceAll(s, "=\n", "")
	s = strings.ReplaceAll(s, "=3D", "=")

	return s
}

func rawBody(raw []byte) []byte {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[i+4:]
	}

	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[i+2:]
	}

	return nil
}

func textBody(m *mail.Message) string {
	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return decodeBody(m.Body, m.Header.Get("Content-Transfer-Encoding"))
	}

	mr := multipart.NewReader(m.Body, params["boundary"])

	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}

		partType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			continue
		}

		if partType == "text/plain" || partType == "text/html" {
			return decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
		}
	}
}

func decodeBody(r io.Reader, encoding string) string {
	if strings.EqualFold(strings.TrimSpace(encoding), "quoted-printable") {
		r = quotedprintable.NewReader(r)
	}

	body, err := io.ReadAll(r)
	if err != nil && len(body) == 0 {
		return ""
	}

	return string(body)
}
