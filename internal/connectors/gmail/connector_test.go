package gmail

import (
	"encoding/base64"
	"testing"
)

func TestDecodeBase64URL(t *testing.T) {
	raw := []byte("Subject: =?UTF-8?B?SU5WT0lDRQ==?=\r\n\r\n??>>")
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding} {
		got, err := decodeBase64URL(enc.EncodeToString(raw))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(raw) {
			t.Fatalf("got %q", got)
		}
	}
	if _, err := decodeBase64URL("!!not base64!!"); err == nil {
		t.Fatalf("expected error")
	}
}
