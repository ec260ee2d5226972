package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mvoicu/dansport/internal/identity"
	apperrors "github.com/mvoicu/dansport/internal/platform/errors"
)

const maxJSONBody = 1 << 20

func actorFrom(r *http.Request) identity.Actor {
	actor, _ := identity.FromContext(r.Context())
	return actor
}

func decodeJSON(r *http.Request, dst any) error {
	if r == nil || r.Body == nil {
		return apperrors.E(apperrors.KindInvalidInput, "request body is required")
	}
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err := decoder.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "decode request body", err)
	}
	return nil
}

func pathID(r *http.Request, name string) string {
	return strings.TrimSpace(r.PathValue(name))
}

func parseTimeParam(values url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.E(apperrors.KindInvalidInput, key+" must be an RFC 3339 timestamp")
	}
	return &parsed, nil
}

// flexInt accepts a JSON number or numeric string. Anything else, including
// placeholder text in imported result sheets, decodes to nil rather than
// failing the request.
type flexInt struct {
	value *int
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		f.value = nil
		return nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		f.value = nil
		return nil
	}
	f.value = &parsed
	return nil
}

// flexFloat is the float counterpart of flexInt.
type flexFloat struct {
	value *float64
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		f.value = nil
		return nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		f.value = nil
		return nil
	}
	f.value = &parsed
	return nil
}
