// SPDX-License-Identifier: MIT

// Package media defines the immutable encoded-media blob passed between
// pipeline stages.
package media

import "bytes"

// DefaultMIME is the container/codec target of the pipeline. Captures arrive
// as WebM from the recorder and stay WebM through trim and publish.
const DefaultMIME = "video/webm"

// Blob is an immutable encoded media artifact. Ownership of the underlying
// bytes passes to the Blob on construction; callers must not mutate the
// slice afterwards.
type Blob struct {
	data []byte
	mime string
}

// NewBlob wraps data as a Blob with the given MIME type. An empty mime
// defaults to DefaultMIME.
func NewBlob(data []byte, mime string) Blob {
	if mime == "" {
		mime = DefaultMIME
	}
	return Blob{data: data, mime: mime}
}

// Bytes returns the raw encoded bytes. The returned slice must be treated
// as read-only.
func (b Blob) Bytes() []byte { return b.data }

// MIME returns the declared MIME type.
func (b Blob) MIME() string { return b.mime }

// Len returns the byte length of the blob.
func (b Blob) Len() int { return len(b.data) }

// Reader returns a reader over the blob's bytes.
func (b Blob) Reader() *bytes.Reader { return bytes.NewReader(b.data) }
