// Package attachment models a single email attachment and renders the MIME
// header block that precedes its payload inside a multipart message.
//
// An Attachment is immutable once constructed. It carries exactly one
// variant (raw data, a file reference, or HTML content), an ordered list of
// caller-supplied extra headers, and an ordered list of related child
// attachments that a composer may nest under multipart/related.
package attachment

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mailfab/eml-compose/internal/mimeword"
)

// DefaultMIMEType is used for file attachments constructed without an
// explicit content type.
const DefaultMIMEType = "application/octet-stream"

// DefaultCharset is used for HTML attachments constructed without an
// explicit character set.
const DefaultCharset = "utf-8"

// The three fixed headers every attachment emits, in this order, before any
// caller-supplied extras. Casing and values are a bit-exact contract with
// the message composer.
const (
	headerContentType        = "CONTENT-TYPE"
	headerContentDisposition = "CONTENT-DISPOSITION"
	headerTransferEncoding   = "CONTENT-TRANSFER-ENCODING"

	transferEncodingValue = "BASE64"
)

// Header is a single name/value header pair. Order matters to callers, so
// headers travel as slices rather than maps.
type Header struct {
	Name  string
	Value string
}

// Variant is the closed set of attachment kinds. Exactly one variant is
// active per attachment and it never changes after construction.
type Variant interface {
	variant()
}

// Data is an attachment whose payload is held in memory.
type Data struct {
	Bytes    []byte
	MIMEType string
	Name     string
	Inline   bool
}

func (Data) variant() {}

// File is an attachment that references a file on disk. The payload is read
// by the composer at serialization time; this package only manipulates the
// path string, so a File attachment renders fine even when the path does not
// exist.
type File struct {
	Path     string
	MIMEType string
	Name     string
	Inline   bool
}

func (File) variant() {}

// HTML is an inline HTML body part. Alternative marks it as a candidate for
// a multipart/alternative group alongside a plain-text body.
type HTML struct {
	Content     string
	Charset     string
	Alternative bool
}

func (HTML) variant() {}

// Attachment is the immutable aggregate of a variant, extra headers and
// related child attachments.
type Attachment struct {
	v       Variant
	headers []Header
	related []Attachment
}

// Option customizes an attachment at construction time. Options that do not
// apply to the variant being built are ignored.
type Option func(*settings)

type settings struct {
	mimeType    string
	name        string
	inline      bool
	charset     string
	alternative bool
	headers     []Header
	related     []Attachment
}

// WithInline marks the attachment for inline disposition instead of the
// default attachment disposition. Data and File variants only.
func WithInline(inline bool) Option {
	return func(s *settings) { s.inline = inline }
}

// WithName overrides the display name derived from the file path. File
// variant only.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithMIMEType overrides the default content type of a file attachment.
func WithMIMEType(mimeType string) Option {
	return func(s *settings) { s.mimeType = mimeType }
}

// WithCharset overrides the default character set of an HTML attachment.
func WithCharset(charset string) Option {
	return func(s *settings) { s.charset = charset }
}

// WithAlternative controls whether an HTML attachment participates in a
// multipart/alternative group. Defaults to true.
func WithAlternative(alternative bool) Option {
	return func(s *settings) { s.alternative = alternative }
}

// WithHeader appends an extra header emitted after the three fixed headers.
// Headers keep their insertion order and are never deduplicated; a name
// colliding with a fixed header is emitted verbatim as a duplicate.
func WithHeader(name, value string) Option {
	return func(s *settings) { s.headers = append(s.headers, Header{Name: name, Value: value}) }
}

// WithRelated appends child attachments that a composer nests under a
// multipart/related wrapper rooted at this attachment.
func WithRelated(related ...Attachment) Option {
	return func(s *settings) { s.related = append(s.related, related...) }
}

func apply(opts []Option) *settings {
	s := &settings{alternative: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewData creates an attachment from an in-memory payload. The bytes are
// retained as given; no validation is performed on the MIME type.
func NewData(payload []byte, mimeType, name string, opts ...Option) Attachment {
	s := apply(opts)
	return newAttachment(Data{
		Bytes:    payload,
		MIMEType: mimeType,
		Name:     name,
		Inline:   s.inline,
	}, s)
}

// NewFile creates an attachment referencing a file path. The content type
// defaults to application/octet-stream and the display name to the last
// path component; neither touches the filesystem.
func NewFile(path string, opts ...Option) Attachment {
	s := apply(opts)
	mimeType := s.mimeType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	name := s.name
	if name == "" {
		name = filepath.Base(path)
	}
	return newAttachment(File{
		Path:     path,
		MIMEType: mimeType,
		Name:     name,
		Inline:   s.inline,
	}, s)
}

// NewHTML creates an inline HTML attachment. The charset defaults to utf-8
// and the alternative flag to true.
func NewHTML(content string, opts ...Option) Attachment {
	s := apply(opts)
	charset := s.charset
	if charset == "" {
		charset = DefaultCharset
	}
	return newAttachment(HTML{
		Content:     content,
		Charset:     charset,
		Alternative: s.alternative,
	}, s)
}

// newAttachment is the single construction path all factories funnel into.
// It stores the resolved variant and the two ordered sequences verbatim and
// never fails.
func newAttachment(v Variant, s *settings) Attachment {
	return Attachment{
		v:       v,
		headers: s.headers,
		related: s.related,
	}
}

// Variant returns the active variant for exhaustive type switching.
func (a Attachment) Variant() Variant {
	return a.v
}

// Related returns the ordered child attachments.
func (a Attachment) Related() []Attachment {
	return a.related
}

// HasRelated reports whether the attachment carries related children and
// therefore needs a multipart/related wrapper.
func (a Attachment) HasRelated() bool {
	return len(a.related) > 0
}

// IsAlternative reports whether the attachment is an HTML part that should
// join a multipart/alternative group. Data and File attachments are never
// alternative regardless of any flags.
func (a Attachment) IsAlternative() bool {
	v, ok := a.v.(HTML)
	return ok && v.Alternative
}

// Headers returns the ordered header pairs for the attachment part: the
// variant-specific Content-Type and Content-Disposition, the fixed
// Content-Transfer-Encoding declaration, then every extra header in
// insertion order. The payload itself is never touched here; base64
// encoding is the composer's job.
func (a Attachment) Headers() []Header {
	headers := make([]Header, 0, 3+len(a.headers))

	switch v := a.v.(type) {
	case Data:
		headers = append(headers, contentHeaders(v.MIMEType, v.Name, v.Inline)...)
	case File:
		headers = append(headers, contentHeaders(v.MIMEType, v.Name, v.Inline)...)
	case HTML:
		headers = append(headers,
			Header{Name: headerContentType, Value: "text/html; charset=" + v.Charset},
			Header{Name: headerContentDisposition, Value: "inline"},
		)
	default:
		panic(fmt.Sprintf("attachment: unknown variant %T", v))
	}

	headers = append(headers, Header{Name: headerTransferEncoding, Value: transferEncodingValue})
	headers = append(headers, a.headers...)
	return headers
}

// HeaderString renders the header pairs as "Name: Value" lines joined with
// CRLF, with no trailing separator.
func (a Attachment) HeaderString() string {
	headers := a.Headers()
	lines := make([]string, len(headers))
	for i, h := range headers {
		lines[i] = h.Name + ": " + h.Value
	}
	return strings.Join(lines, "\r\n")
}

// contentHeaders builds the Content-Type/Content-Disposition pair shared by
// the Data and File variants. The filename parameter is omitted when the
// encoder yields nothing for the name.
func contentHeaders(mimeType, name string, inline bool) []Header {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	if encoded, ok := mimeword.Encode(name); ok {
		disposition += fmt.Sprintf("; filename=%q", encoded)
	}
	return []Header{
		{Name: headerContentType, Value: mimeType},
		{Name: headerContentDisposition, Value: disposition},
	}
}
