package source

import "testing"

func TestNormalizeComposesCombiningMarks(t *testing.T) {
	decomposed := "cafe\u0301"
	composed := "caf\u00e9"

	sf := NewReplSource(`print "` + decomposed + `";`)
	want := `print "` + composed + `";`
	if sf.Content != want {
		t.Fatalf("content not normalized: got %q, want %q", sf.Content, want)
	}
	if Normalize(composed) != composed {
		t.Errorf("Normalize changed an NFC string")
	}
}

func TestLines(t *testing.T) {
	sf := FromFile("/tmp/scripts/fib.lox", "var a = 1;\r\nprint a;\n")

	tests := []struct {
		n    int
		want string
	}{
		{1, "var a = 1;"},
		{2, "print a;"},
		{3, ""},
		{0, ""},
		{42, ""},
	}
	for _, tt := range tests {
		if got := sf.Line(tt.n); got != tt.want {
			t.Errorf("Line(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}

	if sf.Name != "fib.lox" {
		t.Errorf("Name = %q, want fib.lox", sf.Name)
	}
	if !sf.IsFile() || sf.DisplayPath() != "/tmp/scripts/fib.lox" {
		t.Errorf("unexpected path info: IsFile=%v DisplayPath=%q", sf.IsFile(), sf.DisplayPath())
	}
	if NewEvalSource("1;").DisplayPath() != "<eval>" {
		t.Errorf("eval source should display as <eval>")
	}
}
