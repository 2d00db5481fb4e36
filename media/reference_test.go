package media

import "testing"

func TestValidReference(t *testing.T) {
	valid := []string{
		"https://www.youtube.com/watch?v=abc123",
		"https://youtube.com/watch?v=abc123",
		"http://youtu.be/abc123",
		"youtu.be/abc123",
		"www.youtube.com/shorts/xyz",
	}

	for _, ref := range valid {
		if !ValidReference(ref) {
			t.Errorf("expected %q to be valid", ref)
		}
	}

	invalid := []string{
		"https://vimeo.com/12345",
		"https://example.com/watch?v=abc",
		"not a url at all",
		"ftp://youtube.com/watch?v=abc",
		"",
	}

	for _, ref := range invalid {
		if ValidReference(ref) {
			t.Errorf("expected %q to be invalid", ref)
		}
	}
}

func TestValidName(t *testing.T) {
	valid := []string{"clip", "my-clip", "my_clip_2", "A1-b2_C3"}
	for _, name := range valid {
		if !ValidName(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}

	invalid := []string{"", "has space", "slash/name", "dot.name", "émoji", "semi;colon"}
	for _, name := range invalid {
		if ValidName(name) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     string
		wantItem string
	}{
		{
			"watch with playlist qualifiers",
			"https://www.youtube.com/watch?v=abc123&list=PLx&index=4&t=30s",
			"https://www.youtube.com/watch?v=abc123",
			"abc123",
		},
		{
			"short link",
			"https://youtu.be/abc123?si=tracker",
			"https://youtu.be/abc123",
			"abc123",
		},
		{
			"shorts",
			"https://www.youtube.com/shorts/xyz789?feature=share",
			"https://www.youtube.com/shorts/xyz789",
			"xyz789",
		},
		{
			"watch without id passes through",
			"https://www.youtube.com/watch",
			"https://www.youtube.com/watch",
			"",
		},
		{
			"unrecognized path passes through",
			"https://www.youtube.com/playlist?list=PLx",
			"https://www.youtube.com/playlist?list=PLx",
			"",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, itemID := Canonicalize(tc.raw)
			if got != tc.want {
				t.Fatalf("canonical: expected %q, got %q", tc.want, got)
			}
			if itemID != tc.wantItem {
				t.Fatalf("item id: expected %q, got %q", tc.wantItem, itemID)
			}
		})
	}
}
