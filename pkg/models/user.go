package models

import "time"

// User is issued by the identity provider and treated as read-only.
type User struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Anonymous   bool   `json:"isAnonymous,omitempty"`
}

type VerificationStatus string

const (
	VerificationUnset    VerificationStatus = ""
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
)

const (
	DefaultDisplayName = "Anonymous"
	DefaultPhotoURL    = "https://placehold.co/100x100"
)

// Profile is the application-owned document keyed by the owning user's uid.
type Profile struct {
	UID                string             `json:"uid"`
	DisplayName        string             `json:"displayName"`
	Email              string             `json:"email"`
	PhotoURL           string             `json:"photoURL"`
	IsCreator          bool               `json:"isCreator"`
	Bio                string             `json:"bio"`
	Categories         []string           `json:"categories"`
	IsProfileComplete  bool               `json:"isProfileComplete"`
	VerificationStatus VerificationStatus `json:"verificationStatus,omitempty"`
	IsVerified         bool               `json:"isVerified"`
	IsActive           bool               `json:"isActive"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// NewProfile builds the first profile for a user that has none yet.
func NewProfile(u User, now time.Time) Profile {
	name := u.DisplayName
	if name == "" {
		name = DefaultDisplayName
	}
	photo := u.PhotoURL
	if photo == "" {
		photo = DefaultPhotoURL
	}
	return Profile{
		UID:               u.UID,
		DisplayName:       name,
		Email:             u.Email,
		PhotoURL:          photo,
		Categories:        []string{},
		IsProfileComplete: false,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	p.Categories = cloneStrings(p.Categories)
	return p
}

// cloneStrings copies in, keeping an empty slice empty rather than nil.
func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ProfilePatch is a partial update; nil fields are left untouched.
type ProfilePatch struct {
	DisplayName        *string             `json:"displayName,omitempty"`
	PhotoURL           *string             `json:"photoURL,omitempty"`
	Bio                *string             `json:"bio,omitempty"`
	Categories         []string            `json:"categories,omitempty"`
	IsCreator          *bool               `json:"isCreator,omitempty"`
	IsProfileComplete  *bool               `json:"isProfileComplete,omitempty"`
	VerificationStatus *VerificationStatus `json:"verificationStatus,omitempty"`
	IsVerified         *bool               `json:"isVerified,omitempty"`
}

// Apply returns p with the patch applied. UID and CreatedAt never change.
func (pp ProfilePatch) Apply(p Profile, now time.Time) Profile {
	out := p.Clone()
	if pp.DisplayName != nil {
		out.DisplayName = *pp.DisplayName
	}
	if pp.PhotoURL != nil {
		out.PhotoURL = *pp.PhotoURL
	}
	if pp.Bio != nil {
		out.Bio = *pp.Bio
	}
	if pp.Categories != nil {
		out.Categories = cloneStrings(pp.Categories)
	}
	if pp.IsCreator != nil {
		out.IsCreator = *pp.IsCreator
	}
	if pp.IsProfileComplete != nil {
		out.IsProfileComplete = *pp.IsProfileComplete
	}
	if pp.VerificationStatus != nil {
		out.VerificationStatus = *pp.VerificationStatus
	}
	if pp.IsVerified != nil {
		out.IsVerified = *pp.IsVerified
	}
	out.UpdatedAt = now
	return out
}
