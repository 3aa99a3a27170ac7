package model

// UserEntry tracks the engagement funnel of one chat user.
type UserEntry struct {
	FirstSeen int64   `json:"first_seen,omitempty"`
	Username  *string `json:"username,omitempty"`
	Started   bool    `json:"started,omitempty"`
	BuyClicks int64   `json:"buy_clicks,omitempty"`
	Purchased int64   `json:"purchased,omitempty"`
	Blocked   int64   `json:"blocked,omitempty"`
}

// UsersDocument maps decimal user ids to their entry.
type UsersDocument map[string]UserEntry

// UserStats counts users that reached each funnel step.
type UserStats struct {
	Total      int `json:"total"`
	Started    int `json:"started"`
	BuyClicked int `json:"buy_clicked"`
	Purchased  int `json:"purchased"`
	Blocked    int `json:"blocked"`
}

// AdminsDocument lists admins added at runtime on top of the configured ones.
type AdminsDocument struct {
	Extra []int64 `json:"extra"`
}
