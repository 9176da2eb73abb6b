package authgate

import "time"

// User is the authenticated identity returned by Login.
type User struct {
	Username string
	Email    string
}

// LoginResult carries the session and refresh token issued on a successful
// login.
type LoginResult struct {
	User         User
	SessionKey   string
	RefreshToken string
	AccessToken  string
}

// IPLockInfo is the operator view of one rate-limited IP.
type IPLockInfo struct {
	IPAddress      string `json:"ip_address"`
	LockoutCount   int    `json:"lockout_count"`
	LatestUsername string `json:"latest_username,omitempty"`
	// LockoutDuration is the humanized span between the first and the most
	// recent over-limit event, e.g. "3 days, 4 hours".
	LockoutDuration string    `json:"lockout_duration"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AccountLockInfo is the operator view of one account's failure state.
type AccountLockInfo struct {
	Username     string     `json:"username"`
	FailureCount int        `json:"failure_count"`
	LockoutUntil *time.Time `json:"lockout_until,omitempty"`
	Locked       bool       `json:"locked"`
}

// LockFilter narrows and pages the admin listings. Zero values mean no
// filtering; Page is 1-based.
type LockFilter struct {
	IP       string
	Username string
	Page     int
	PerPage  int
}
