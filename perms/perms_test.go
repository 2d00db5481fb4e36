package perms

import "testing"

func TestChecker(t *testing.T) {
	c := NewChecker("Admin", "Uploader")

	tests := []struct {
		name       string
		roles      []string
		admin      bool
		uploadable bool
	}{
		{"no roles", nil, false, false},
		{"uploader only", []string{"Uploader"}, false, true},
		{"admin only", []string{"Admin"}, true, true},
		{"both", []string{"Uploader", "Admin"}, true, true},
		{"unrelated roles", []string{"Member", "Moderator"}, false, false},
		{"case sensitive", []string{"admin", "uploader"}, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.IsAdmin(tc.roles); got != tc.admin {
				t.Fatalf("IsAdmin(%v) = %v, want %v", tc.roles, got, tc.admin)
			}

			if got := c.IsUploadEligible(tc.roles); got != tc.uploadable {
				t.Fatalf("IsUploadEligible(%v) = %v, want %v", tc.roles, got, tc.uploadable)
			}
		})
	}
}
