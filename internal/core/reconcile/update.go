package reconcile

// UserState is the part of a user row the update rule looks at.
type UserState struct {
	UserID     int64
	City       string // "" when unset
	CityChatID int64  // 0 when unset
}

// Match is the chat that won a user's probe set.
type Match struct {
	ChatRecordID int64
	City         string
}

// Update is a pending write of (city, city_chat_id) for one user.
type Update struct {
	UserID       int64
	City         string
	ChatRecordID int64
	CityChanged  bool
}

// PlanUpdate decides whether a match has to be written.
// A write is needed when the city is unset or differs, and also when the
// chat reference is still empty: the reference is what marks a user as
// reconciled, so an equal-city match still gets one.
func PlanUpdate(user UserState, match Match) (Update, bool) {
	cityChanged := user.City == "" || user.City != match.City
	if !cityChanged && user.CityChatID != 0 {
		return Update{}, false
	}
	return Update{
		UserID:       user.UserID,
		City:         match.City,
		ChatRecordID: match.ChatRecordID,
		CityChanged:  cityChanged,
	}, true
}
