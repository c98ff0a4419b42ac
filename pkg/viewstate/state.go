package viewstate

import (
	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/models"
)

type Page string

const (
	PageHome           Page = "home"
	PageCreators       Page = "creators"
	PageCreatorProfile Page = "creator-profile"
	PageLivePosts      Page = "live-posts"
	PageMyProfile      Page = "my-profile"
)

func (p Page) Valid() bool {
	switch p {
	case PageHome, PageCreators, PageCreatorProfile, PageLivePosts, PageMyProfile:
		return true
	}
	return false
}

type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseExited  Phase = "exited"
)

// Overlays are independent; any subset may be open at once.
type Overlays struct {
	Login        bool `json:"login"`
	ProfileEdit  bool `json:"profileEdit"`
	AgeGate      bool `json:"ageGate"`
	KYCWarning   bool `json:"kycWarning"`
	MobileMenu   bool `json:"mobileMenu"`
	Verification bool `json:"verification"`
}

// State is everything one client session renders from.
type State struct {
	Phase           Phase            `json:"phase"`
	Page            Page             `json:"page"`
	PrevPage        Page             `json:"prevPage,omitempty"`
	SelectedCreator *models.Creator  `json:"selectedCreator,omitempty"`
	Overlays        Overlays         `json:"overlays"`
	User            *models.User     `json:"user,omitempty"`
	Profile         *models.Profile  `json:"profile,omitempty"`
	IsAuthenticated bool             `json:"isAuthenticated"`
	AgeConfirmed    bool             `json:"ageConfirmed"`
	Creators        []models.Creator `json:"creators"`
	Posts           []models.Post    `json:"posts"`
	VerificationURL string           `json:"verificationUrl,omitempty"`
	ExitURL         string           `json:"exitUrl,omitempty"`
	Error           *apperr.Error    `json:"error,omitempty"`
}

// Initial is the state before boot finishes.
func Initial() State {
	return State{Phase: PhaseLoading, Page: PageHome, Creators: []models.Creator{}, Posts: []models.Post{}}
}

// Persisted is the slice of State that survives a reload.
type Persisted struct {
	IsAuthenticated bool            `json:"isAuthenticated"`
	User            *models.User    `json:"user"`
	Profile         *models.Profile `json:"profile"`
	AgeConfirmed    bool            `json:"ageConfirmed"`
}

func (s State) Persisted() Persisted {
	return Persisted{
		IsAuthenticated: s.IsAuthenticated,
		User:            s.User,
		Profile:         s.Profile,
		AgeConfirmed:    s.AgeConfirmed,
	}
}

// gated reports whether user-driven view changes are currently blocked.
func (s State) gated() bool {
	return s.Phase != PhaseReady || s.Overlays.AgeGate
}
