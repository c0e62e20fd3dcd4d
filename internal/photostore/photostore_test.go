package photostore

import (
	"testing"

	"github.com/google/uuid"
)

func TestPhotoKey(t *testing.T) {
	id := uuid.MustParse("3e5a0a6a-5f2f-4f3a-9a53-0fb2ab1c9d10")

	got := photoKey(id, 0)
	want := "issues/3e5a0a6a-5f2f-4f3a-9a53-0fb2ab1c9d10/photo-0.jpg"
	if got != want {
		t.Errorf("photoKey = %q, want %q", got, want)
	}

	if photoKey(id, 2) == got {
		t.Error("distinct indexes must produce distinct keys")
	}
}
