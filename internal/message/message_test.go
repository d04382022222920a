package message

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfab/eml-compose/internal/attachment"
)

// parsedPart is a flattened leaf part captured during a round-trip parse.
type parsedPart struct {
	contentType string
	filename    string
	body        []byte
}

// parseMessage round-trips composed bytes through go-message, returning the
// top-level content type and every leaf part in order.
func parseMessage(t *testing.T, raw []byte) (string, []parsedPart) {
	t.Helper()

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err, "composed message should parse")

	rootType, _, err := mr.Header.ContentType()
	require.NoError(t, err)

	var parts []parsedPart
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		var pp parsedPart
		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			pp.contentType, _, err = h.ContentType()
			require.NoError(t, err)
		case *mail.AttachmentHeader:
			pp.contentType, _, err = h.ContentType()
			require.NoError(t, err)
			pp.filename, err = h.Filename()
			require.NoError(t, err)
		}
		pp.body, err = io.ReadAll(p.Body)
		require.NoError(t, err)
		parts = append(parts, pp)
	}
	return rootType, parts
}

func TestCompose_PlainText(t *testing.T) {
	m := &Mail{
		From:     "sender@example.com",
		To:       []string{"recipient@example.com"},
		Subject:  "Status update",
		TextBody: "All systems nominal.\r\n",
	}

	raw, err := m.Compose()
	require.NoError(t, err)

	rootType, parts := parseMessage(t, raw)
	assert.Equal(t, "text/plain", rootType, "single body should not get a multipart wrapper")
	require.Len(t, parts, 1)
	assert.Contains(t, string(parts[0].body), "All systems nominal.")

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Status update", subject)
}

func TestCompose_FileAttachmentRoundTrip(t *testing.T) {
	payload := []byte("%PDF-1.4 fake report body")
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	m := &Mail{
		From:     "sender@example.com",
		To:       []string{"recipient@example.com"},
		Subject:  "Report attached",
		TextBody: "See attachment.",
		Attachments: []attachment.Attachment{
			attachment.NewFile(path, attachment.WithMIMEType("application/pdf")),
		},
	}

	raw, err := m.Compose()
	require.NoError(t, err)

	rootType, parts := parseMessage(t, raw)
	assert.Equal(t, "multipart/mixed", rootType)
	require.Len(t, parts, 2)
	assert.Equal(t, "text/plain", parts[0].contentType)
	assert.Equal(t, "application/pdf", parts[1].contentType)
	assert.Equal(t, "report.pdf", parts[1].filename)
	assert.Equal(t, payload, parts[1].body, "attachment payload should survive the base64 round trip")
}

func TestCompose_AlternativeHTML(t *testing.T) {
	m := &Mail{
		From:     "sender@example.com",
		To:       []string{"recipient@example.com"},
		Subject:  "Hello",
		TextBody: "hi",
		Attachments: []attachment.Attachment{
			attachment.NewHTML("<p>hi</p>"),
		},
	}

	raw, err := m.Compose()
	require.NoError(t, err)

	rootType, parts := parseMessage(t, raw)
	assert.Equal(t, "multipart/alternative", rootType)
	require.Len(t, parts, 2)
	assert.Equal(t, "text/plain", parts[0].contentType, "text part must come first")
	assert.Equal(t, "text/html", parts[1].contentType)
	assert.Equal(t, "<p>hi</p>", string(parts[1].body))
}

func TestCompose_RelatedChildren(t *testing.T) {
	logo := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	html := attachment.NewHTML(`<img src="cid:logo">`,
		attachment.WithRelated(
			attachment.NewData(logo, "image/png", "logo.png",
				attachment.WithInline(true),
				attachment.WithHeader("Content-ID", "<logo>"),
			),
		),
	)

	m := &Mail{
		From:        "sender@example.com",
		To:          []string{"recipient@example.com"},
		Subject:     "Inline image",
		Attachments: []attachment.Attachment{html},
	}

	raw, err := m.Compose()
	require.NoError(t, err)

	rootType, parts := parseMessage(t, raw)
	assert.Equal(t, "multipart/related", rootType)
	require.Len(t, parts, 2)
	assert.Equal(t, "text/html", parts[0].contentType)
	assert.Equal(t, "image/png", parts[1].contentType)
	assert.Equal(t, logo, parts[1].body)
	assert.Contains(t, string(raw), "Content-ID: <logo>")
}

func TestCompose_NonAlternativeHTMLJoinsMixed(t *testing.T) {
	m := &Mail{
		From:     "sender@example.com",
		To:       []string{"recipient@example.com"},
		Subject:  "Snippet",
		TextBody: "see below",
		Attachments: []attachment.Attachment{
			attachment.NewHTML("<p>standalone</p>", attachment.WithAlternative(false)),
		},
	}

	raw, err := m.Compose()
	require.NoError(t, err)

	rootType, parts := parseMessage(t, raw)
	assert.Equal(t, "multipart/mixed", rootType)
	require.Len(t, parts, 2)
	assert.Equal(t, "text/html", parts[1].contentType)
}

func TestCompose_MissingAttachmentFile(t *testing.T) {
	m := &Mail{
		From: "sender@example.com",
		To:   []string{"recipient@example.com"},
		Attachments: []attachment.Attachment{
			attachment.NewFile(filepath.Join(t.TempDir(), "missing.bin")),
		},
	}

	_, err := m.Compose()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read attachment file")
}

func TestCompose_NonASCIISubject(t *testing.T) {
	m := &Mail{
		From:     "sender@example.com",
		To:       []string{"recipient@example.com"},
		Subject:  "Invitación: Reunión de proyecto",
		TextBody: "hola",
	}

	raw, err := m.Compose()
	require.NoError(t, err)
	assert.NotContains(t, strings.Split(string(raw), "\r\n\r\n")[0], "Invitación",
		"raw non-ASCII must not appear in the header block")

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Invitación: Reunión de proyecto", subject)
}

func TestCompose_Deterministic(t *testing.T) {
	m := &Mail{
		From:     "sender@example.com",
		To:       []string{"recipient@example.com"},
		Subject:  "same",
		TextBody: "body",
	}

	first, err := m.Compose()
	require.NoError(t, err)
	second, err := m.Compose()
	require.NoError(t, err)
	assert.Equal(t, first, second, "no multipart wrapper means no random boundary")
}
