package email

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// htmlBody extracts the text/html part of an RFC822 message, decoding
// quoted-printable and base64 transfer encodings. Returns "" when the mail
// has no HTML part.
func htmlBody(raw []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	ct := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return htmlFromMultipart(msg.Body, params["boundary"])
	}
	if mediaType == "text/html" {
		return decodeTransfer(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	}
	return ""
}

func htmlFromMultipart(body io.Reader, boundary string) string {
	if boundary == "" {
		return ""
	}
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			continue
		}
		if strings.HasPrefix(mediaType, "multipart/") {
			if html := htmlFromMultipart(part, params["boundary"]); html != "" {
				return html
			}
			continue
		}
		if mediaType == "text/html" {
			return decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding"))
		}
	}
}

func decodeTransfer(r io.Reader, encoding string) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, newLineStripper(r))
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	b, err := io.ReadAll(r)
	if err != nil && len(b) == 0 {
		return ""
	}
	return string(b)
}

// lineStripper drops CR/LF so base64 bodies decode in one pass.
type lineStripper struct {
	r io.Reader
}

func newLineStripper(r io.Reader) io.Reader { return &lineStripper{r: r} }

func (l *lineStripper) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	kept := 0
	for i := 0; i < n; i++ {
		if p[i] == '\r' || p[i] == '\n' {
			continue
		}
		p[kept] = p[i]
		kept++
	}
	if kept == 0 && err == nil && n > 0 {
		return l.Read(p)
	}
	return kept, err
}
