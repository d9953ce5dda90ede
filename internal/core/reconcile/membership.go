package reconcile

import "strings"

// MemberStatus is the membership status reported by the messaging platform.
type MemberStatus string

const (
	StatusCreator       MemberStatus = "creator"
	StatusOwner         MemberStatus = "owner"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
	StatusNotFound      MemberStatus = "not_found"
)

// IsMember reports whether a status counts as belonging to the chat.
// Restricted users are still members; everything else, unknown values
// included, is not.
func IsMember(status string) bool {
	switch MemberStatus(strings.ToLower(strings.TrimSpace(status))) {
	case StatusCreator, StatusOwner, StatusAdministrator, StatusMember, StatusRestricted:
		return true
	}
	return false
}
