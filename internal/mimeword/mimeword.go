// Package mimeword encodes header parameter text as RFC 2047 encoded words.
package mimeword

import "mime"

// Encode returns text in a form safe for use inside a MIME header parameter.
// Plain ASCII text passes through unchanged; anything else becomes a
// Q-encoded word. The boolean is false only when there is nothing to encode,
// in which case callers omit the parameter entirely.
func Encode(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	return mime.QEncoding.Encode("UTF-8", text), true
}
