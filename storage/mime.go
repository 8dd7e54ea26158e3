package storage

import (
	"path/filepath"
	"strings"
)

const octetStream = "application/octet-stream"

var documentMIMETypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// MIMEType derives a content type from the file extension. Unknown
// extensions map to application/octet-stream.
func MIMEType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if mt, ok := documentMIMETypes[ext]; ok {
		return mt
	}
	return octetStream
}

// IsDocument reports whether filename carries one of the accepted resume
// extensions (.pdf, .doc, .docx), case-insensitively. This is the only
// input validation the ingest entry point performs.
func IsDocument(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := documentMIMETypes[ext]
	return ok
}
