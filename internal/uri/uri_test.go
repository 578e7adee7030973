package uri

import "testing"

func TestSplitJoinRoundTrip(t *testing.T) {
	cases := []string{
		"path:///tmp/a",
		"path:///tmp/x/y",
		"package://apt/vim?version=8.2",
		"user://localhost/alice#shell",
		"x://h/p",
	}
	for _, u := range cases {
		parts, err := Split(u)
		if err != nil {
			t.Fatalf("Split(%q): %v", u, err)
		}
		got, err := Join(parts)
		if err != nil {
			t.Fatalf("Join(%+v): %v", parts, err)
		}
		if got != u {
			t.Errorf("round trip mismatch: got %q, want %q", got, u)
		}

		reparsed, err := Split(got)
		if err != nil {
			t.Fatalf("Split(%q) (reparsed): %v", got, err)
		}
		if reparsed != parts {
			t.Errorf("split(join(parts)) != parts: got %+v, want %+v", reparsed, parts)
		}
	}
}

func TestSplitInvalid(t *testing.T) {
	cases := []string{
		"not-a-uri",
		"path:/missing-slashes",
		"://no-scheme/path",
		"path://host-no-leading-slash",
	}
	for _, u := range cases {
		if _, err := Split(u); err == nil {
			t.Errorf("Split(%q): expected error, got nil", u)
		}
	}
}

func TestJoinRejectsPathWithoutLeadingSlash(t *testing.T) {
	_, err := Join(Parts{Scheme: "x", Host: "h", Path: "no-leading-slash"})
	if err == nil {
		t.Fatal("expected error for path without leading slash")
	}
	var invalid *InvalidURIError
	if !asInvalidURI(err, &invalid) {
		t.Fatalf("expected *InvalidURIError, got %T", err)
	}
}

func asInvalidURI(err error, target **InvalidURIError) bool {
	e, ok := err.(*InvalidURIError)
	if !ok {
		return false
	}
	*target = e
	return true
}

func TestSplitWithQueryAndFragment(t *testing.T) {
	p, err := Split("path:///tmp/a?permission#anchor")
	if err != nil {
		t.Fatal(err)
	}
	if p.Scheme != "path" || p.Host != "" || p.Path != "/tmp/a" || p.Query != "permission" || p.Fragment != "anchor" {
		t.Errorf("unexpected parts: %+v", p)
	}
}
