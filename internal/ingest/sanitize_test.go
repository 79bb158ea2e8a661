package ingest

import (
	"strings"
	"testing"
)

func TestSanitizeContent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "keeps structural markup",
			in:   "<p>Hello <strong>world</strong></p><ul><li>one</li></ul>",
			want: "<p>Hello <strong>world</strong></p><ul><li>one</li></ul>",
		},
		{
			name: "strips disallowed tags but keeps text",
			in:   "<div><span>plain</span></div>",
			want: "plain",
		},
		{
			name: "removes script blocks",
			in:   "<p>safe</p><script>alert(1)</script>",
			want: "<p>safe</p>",
		},
		{
			name: "removes inline handlers",
			in:   `<p onclick="steal()">text</p>`,
			want: "<p>text</p>",
		},
		{
			name: "trims whitespace",
			in:   "  <p>padded</p>  ",
			want: "<p>padded</p>",
		},
		{
			name: "plain text passes through",
			in:   "just words",
			want: "just words",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeContent(tc.in); got != tc.want {
				t.Fatalf("SanitizeContent(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeContentKeepsSafeLinks(t *testing.T) {
	t.Parallel()

	got := SanitizeContent(`<a href="https://example.org/a">link</a>`)
	if !strings.Contains(got, `href="https://example.org/a"`) || !strings.Contains(got, "link") {
		t.Fatalf("safe link dropped: %q", got)
	}

	got = SanitizeContent(`<a href="javascript:alert(1)">bad</a>`)
	if strings.Contains(got, "javascript:") {
		t.Fatalf("javascript href must be removed: %q", got)
	}
}
