// Package perms decides who may upload and who may administrate, based on
// role names carried by the interaction surface.
package perms

// Checker evaluates role lists against the configured role names. Admins
// are implicitly upload-eligible.
type Checker struct {
	adminRole  string
	uploadRole string
}

func NewChecker(adminRole, uploadRole string) *Checker {
	return &Checker{adminRole: adminRole, uploadRole: uploadRole}
}

// IsAdmin reports whether any of the roles is the admin role.
func (c *Checker) IsAdmin(roles []string) bool {
	for _, r := range roles {
		if r == c.adminRole {
			return true
		}
	}

	return false
}

// IsUploadEligible reports whether the roles grant upload access.
func (c *Checker) IsUploadEligible(roles []string) bool {
	for _, r := range roles {
		if r == c.uploadRole || r == c.adminRole {
			return true
		}
	}

	return false
}
