package resolver

import (
	"net/url"
	"strings"
)

// Backend-specific URL adjustments applied before a proxy fetch. Each
// provider has its own knob for disposition, so the hints live here rather
// than leaking provider details into the HTTP layer.

// withViewHints returns the URL to fetch for inline viewing. Supabase
// public objects need the explicit download=false hint or some clients
// receive an attachment disposition.
func withViewHints(u *url.URL) string {
	if isSupabasePublicObject(u) {
		v := u.Query()
		v.Set("download", "false")
		clone := *u
		clone.RawQuery = v.Encode()
		return clone.String()
	}
	return u.String()
}

// withDownloadHints returns the URL to fetch for attachment download.
// Supabase takes a download query parameter; Cloudinary raw assets take an
// fl_attachment delivery flag.
func withDownloadHints(u *url.URL) string {
	if isSupabasePublicObject(u) {
		v := u.Query()
		v.Set("download", "true")
		clone := *u
		clone.RawQuery = v.Encode()
		return clone.String()
	}
	if isCloudinaryDelivery(u) {
		clone := *u
		clone.Path = strings.Replace(clone.Path, "/upload/", "/upload/fl_attachment/", 1)
		return clone.String()
	}
	return u.String()
}

func isSupabasePublicObject(u *url.URL) bool {
	return strings.Contains(u.Path, "/storage/v1/object/public/")
}

func isCloudinaryDelivery(u *url.URL) bool {
	return strings.HasSuffix(u.Host, "res.cloudinary.com") &&
		strings.Contains(u.Path, "/upload/")
}
