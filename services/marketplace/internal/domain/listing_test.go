package domain

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"gorm.io/datatypes"
)

func TestPhotoURLs(t *testing.T) {
	l := &Listing{ID: "l-1"}
	if got := l.PhotoURLs(); len(got) != 0 {
		t.Fatalf("empty photos = %v", got)
	}

	l.SetPhotoURLs([]string{"https://img/a.png", "https://img/b.png"})
	if got := l.PhotoURLs(); len(got) != 2 || got[1] != "https://img/b.png" {
		t.Fatalf("photos = %v", got)
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)
	l.Photos = datatypes.JSON(`{"not":"a list"}`)
	if got := l.PhotoURLs(); got != nil {
		t.Fatalf("corrupt photos = %v, want nil", got)
	}
	if !strings.Contains(buf.String(), "l-1") {
		t.Fatalf("decode failure not logged: %q", buf.String())
	}
}
