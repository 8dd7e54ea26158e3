package record

import "time"

// TimestampLayout is the display format used by the CSV files and API
// responses, carried over from the data this service inherited.
const TimestampLayout = "2006-01-02 15:04:05"

// DefaultStatus is the status a new application starts in.
const DefaultStatus = "Applied"

// Application is one tracked job application with its stored resume
// reference.
type Application struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Company        string    `json:"company"`
	JobDescription string    `json:"jobdescription"`
	Filename       string    `json:"filename"`
	Timestamp      time.Time `json:"timestamp"`
	DownloadLink   string    `json:"download_link"`
	ViewLink       string    `json:"view_link"`
	Status         string    `json:"status"`
}

// User is an account that owns applications.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ApplicationUpdate carries the partial-update fields for an application.
// Nil fields are left unchanged.
type ApplicationUpdate struct {
	Company        *string
	JobDescription *string
	Status         *string

	// File replacement fields; set together when a new upload produced a
	// fresh reference.
	Filename     *string
	DownloadLink *string
	ViewLink     *string
}

// UserUpdate carries the partial-update fields for a user.
type UserUpdate struct {
	Password *string
	Role     *string
}
