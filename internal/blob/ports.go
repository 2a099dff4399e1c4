// Package blob stores deposit slip images outside the database.
package blob

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Slips are stored under this prefix in every backend.
const SlipPrefix = "depositSlips/"

// Store is the outbound port for slip storage. Save writes the object and
// returns a public URL for it; Delete accepts the URL Save returned.
type Store interface {
	Save(ctx context.Context, name, contentType string, data []byte) (url string, err error)
	Delete(ctx context.Context, url string) error
}

// SlipName builds the canonical object name for a deposit's slip.
func SlipName(depositID string) string {
	return SlipPrefix + depositID
}

var ErrBadDataURI = errors.New("malformed data URI")

// ParseDataURI decodes a base64 data URI as produced by FileReader in the
// browser ("data:image/png;base64,...").
func ParseDataURI(s string) (contentType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrBadDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrBadDataURI
	}
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("%w: not base64 encoded", ErrBadDataURI)
	}
	contentType = strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadDataURI, err)
	}
	return contentType, data, nil
}
