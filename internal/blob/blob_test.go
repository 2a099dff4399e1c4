package blob

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestParseDataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("slip bytes"))

	ct, data, err := ParseDataURI("data:image/png;base64," + payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if string(data) != "slip bytes" {
		t.Fatalf("data = %q", data)
	}

	ct, _, err = ParseDataURI("data:;base64," + payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct != "application/octet-stream" {
		t.Fatalf("default content type = %q", ct)
	}

	for _, bad := range []string{
		"",
		"image/png;base64," + payload,
		"data:image/png," + payload,
		"data:image/png;base64,%%%",
	} {
		if _, _, err := ParseDataURI(bad); !errors.Is(err, ErrBadDataURI) {
			t.Fatalf("ParseDataURI(%q): expected ErrBadDataURI, got %v", bad, err)
		}
	}
}

func TestSlipName(t *testing.T) {
	if got := SlipName("abc-123"); got != "depositSlips/abc-123" {
		t.Fatalf("SlipName = %q", got)
	}
}
