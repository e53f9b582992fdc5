package provider

import "time"

// expiresAt converts a provider expires_in into an absolute timestamp. Zero
// or negative means the token does not expire.
func expiresAt(expiresIn int) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}
