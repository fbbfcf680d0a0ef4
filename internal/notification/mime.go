package notification

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"
)

// buildMIME renders msg as an RFC 5322 message. Both bodies become a
// multipart/alternative and an attachment wraps everything in
// multipart/mixed.
func buildMIME(msg Message) ([]byte, error) {
	var buf bytes.Buffer

	from := (&mail.Address{Name: msg.FromName, Address: msg.From}).String()
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if msg.Attachment == nil {
		if err := writeBody(&buf, msg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	mixed := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	if err := writeBodyPart(mixed, msg); err != nil {
		return nil, err
	}
	if err := writeAttachment(mixed, msg); err != nil {
		return nil, err
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBody writes the body headers and content directly to w.
func writeBody(w io.Writer, msg Message) error {
	if msg.HTML != "" && msg.Text != "" {
		alt := multipart.NewWriter(w)
		if _, err := fmt.Fprintf(w, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", alt.Boundary()); err != nil {
			return err
		}
		if err := writeTextPart(alt, "text/plain", msg.Text); err != nil {
			return err
		}
		if err := writeTextPart(alt, "text/html", msg.HTML); err != nil {
			return err
		}
		return alt.Close()
	}

	contentType, body := "text/plain", msg.Text
	if msg.HTML != "" {
		contentType, body = "text/html", msg.HTML
	}
	fmt.Fprintf(w, "Content-Type: %s; charset=UTF-8\r\n", contentType)
	fmt.Fprintf(w, "Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	return writeQuotedPrintable(w, body)
}

func writeBodyPart(mw *multipart.Writer, msg Message) error {
	if msg.HTML != "" && msg.Text != "" {
		alt := multipart.NewWriter(io.Discard)
		boundary := alt.Boundary()
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", boundary)},
		})
		if err != nil {
			return err
		}
		alt = multipart.NewWriter(part)
		if err := alt.SetBoundary(boundary); err != nil {
			return err
		}
		if err := writeTextPart(alt, "text/plain", msg.Text); err != nil {
			return err
		}
		if err := writeTextPart(alt, "text/html", msg.HTML); err != nil {
			return err
		}
		return alt.Close()
	}

	contentType, body := "text/plain", msg.Text
	if msg.HTML != "" {
		contentType, body = "text/html", msg.HTML
	}
	return writeTextPart(mw, contentType, body)
}

func writeTextPart(mw *multipart.Writer, contentType, body string) error {
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType + "; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return err
	}
	return writeQuotedPrintable(part, body)
}

func writeQuotedPrintable(w io.Writer, body string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(body)); err != nil {
		return err
	}
	return qp.Close()
}

func writeAttachment(mw *multipart.Writer, msg Message) error {
	att := msg.Attachment
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {fmt.Sprintf("%s; name=%q", contentType, att.Filename)},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", att.Filename)},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(att.Data)
	var lines strings.Builder
	for len(encoded) > 76 {
		lines.WriteString(encoded[:76])
		lines.WriteString("\r\n")
		encoded = encoded[76:]
	}
	lines.WriteString(encoded)
	_, err = io.WriteString(part, lines.String())
	return err
}
