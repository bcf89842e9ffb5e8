package responses

import (
	"encoding/json"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// Negotiate picks the response encoding from an Accept header.
func Negotiate(accept string) string {
	if strings.Contains(accept, ContentTypeMsgpack) {
		return ContentTypeMsgpack
	}
	return ContentTypeJSON
}

// Marshal encodes v for contentType.
func Marshal(contentType string, v any) ([]byte, error) {
	if contentType == ContentTypeMsgpack {
		return msgpack.Marshal(v)
	}
	return json.Marshal(v)
}
