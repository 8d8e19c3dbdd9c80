package domain

import (
	"regexp"
	"strings"
	"time"
)

type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusApproved VerificationStatus = "approved"
	StatusRejected VerificationStatus = "rejected"
)

// Action is an admin decision on a pending registration.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionApprove, ActionReject:
		return Action(s), nil
	default:
		return "", ErrInvalidAction(s)
	}
}

// Status is the terminal verification status the action leads to.
func (a Action) Status() VerificationStatus {
	if a == ActionApprove {
		return StatusApproved
	}
	return StatusRejected
}

const DefaultTimezone = "America/New_York"

var supportedTimezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Phoenix",
	"America/Anchorage",
	"Pacific/Honolulu",
	"UTC",
}

func SupportedTimezones() []string {
	out := make([]string, len(supportedTimezones))
	copy(out, supportedTimezones)
	return out
}

func IsValidTimezone(tz string) bool {
	for _, v := range supportedTimezones {
		if v == tz {
			return true
		}
	}
	return false
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Phone        string
	Company      string
	Timezone     string

	VerificationStatus VerificationStatus
	EmailVerified      bool
	IsAdmin            bool
	VerifiedBy         string
	VerifiedAt         *time.Time
	VerificationToken  string

	Representative RepresentativeRef

	PasswordResetToken   string
	PasswordResetExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// CanLogin reports whether the account passed admin approval.
func (u *User) CanLogin() bool {
	return u.VerificationStatus == StatusApproved && u.EmailVerified
}

// LoginGate returns the status error that blocks a login, or nil.
func (u *User) LoginGate() error {
	switch {
	case u.VerificationStatus == StatusPending:
		return ErrPendingApproval()
	case u.VerificationStatus == StatusRejected:
		return ErrAccountRejected()
	case !u.EmailVerified:
		return ErrNotVerified()
	}
	return nil
}

// ProfilePatch holds the self-service editable fields. Nil means untouched.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Timezone  *string
}

// Normalize trims every field and drops the ones left empty.
func (p ProfilePatch) Normalize() ProfilePatch {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		if v == "" {
			return nil
		}
		return &v
	}
	return ProfilePatch{
		FirstName: trim(p.FirstName),
		LastName:  trim(p.LastName),
		Phone:     trim(p.Phone),
		Timezone:  trim(p.Timezone),
	}
}

func (p ProfilePatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil && p.Timezone == nil
}

// Apply copies the patch onto u. Other fields are never touched.
func (p ProfilePatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Timezone != nil {
		u.Timezone = *p.Timezone
	}
}

// Resolution is the persisted outcome of a verification decision.
type Resolution struct {
	Status         VerificationStatus
	EmailVerified  bool
	VerifiedBy     string
	VerifiedAt     time.Time
	Representative RepresentativeRef
}

// Profile is a user with the representative reference resolved.
// It never exposes credentials or tokens.
type Profile struct {
	User           User
	Representative *Representative
}

func NewProfile(u User, rep *Representative) Profile {
	u.PasswordHash = ""
	u.VerificationToken = ""
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	return Profile{User: u, Representative: rep}
}
