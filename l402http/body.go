package l402http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/elnormous/contenttype"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

var errBodyTooLarge = errors.New("request body too large")

// readBody drains r.Body up to limit bytes and replaces it with a fresh reader
// over the same bytes so the next handler sees the body unchanged. The
// returned slice is the form that is hashed for body binding.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return canonicalBody(r, nil), nil
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	_ = r.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	r.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(raw)), nil }
	return canonicalBody(r, raw), nil
}

// canonicalBody compacts JSON bodies so insignificant whitespace does not
// break a binding. Anything else, including invalid JSON, is used verbatim.
func canonicalBody(r *http.Request, raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}
	mt, err := contenttype.GetMediaType(r)
	if err != nil || !isJSON(mt) {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// isJSON matches application/json and structured syntax suffixes such as
// application/merge-patch+json, ignoring parameters.
func isJSON(mt contenttype.MediaType) bool {
	if !strings.EqualFold(mt.Type, jsonMediaType.Type) {
		return false
	}
	sub := strings.ToLower(mt.Subtype)
	return sub == jsonMediaType.Subtype || strings.HasSuffix(sub, "+json")
}
