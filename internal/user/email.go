package user

import "strings"

// NormalizeEmail lower-cases the domain portion of an email address. Only
// the substring after the last @ is touched; the local part stays exactly as
// entered. Idempotent.
func NormalizeEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
