package jsonutil

import (
	"bytes"
	"testing"
)

func TestEncodePrettyKeepsHTML(t *testing.T) {
	var b bytes.Buffer
	if err := EncodePretty(&b, map[string]string{"error": "a < b && c > d"}); err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"error\": \"a < b && c > d\"\n}\n"
	if b.String() != want {
		t.Fatalf("got %q want %q", b.String(), want)
	}
}
