package checksum

import "testing"

func TestSum(t *testing.T) {
	got := Sum([]byte("schema: [a]\n"))
	if !Valid(got) {
		t.Fatalf("Sum returned %q", got)
	}
	if got != Sum([]byte("schema: [a]\n")) {
		t.Error("Sum is not deterministic")
	}
	if got == Sum([]byte("schema: [b]\n")) {
		t.Error("different inputs produced the same checksum")
	}
	// Empty input has a well-known digest.
	if want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"; Sum(nil) != want {
		t.Errorf("Sum(nil) = %s", Sum(nil))
	}
}

func TestValid(t *testing.T) {
	for _, s := range []string{"", "abc", Sum(nil)[:63] + "z"} {
		if Valid(s) {
			t.Errorf("Valid(%q) = true", s)
		}
	}
}
