package viewstate

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/verification"
)

// Action is one input to Reduce.
type Action interface {
	action()
}

type (
	Restored          struct{ Persisted Persisted }
	BootFinished      struct{}
	AcceptDisclaimer  struct{}
	DeclineDisclaimer struct{ URL string }

	Navigate      struct{ Page Page }
	SelectCreator struct{ ID int }
	CloseCreator  struct{}

	OpenLogin  struct{}
	CloseLogin struct{}
	SignedIn   struct {
		User    models.User
		Profile models.Profile
		Created bool
	}
	SignedOut struct{}

	OpenProfileEdit  struct{}
	CloseProfileEdit struct{}
	ProfileSaved     struct{ Profile models.Profile }
	// ToggleCreator flips the creator flag. Stored, when set, is the
	// already-persisted result and replaces the local flip.
	ToggleCreator struct{ Stored *models.Profile }

	StartVerification    struct{}
	VerificationReady    struct{ URL string }
	VerificationFinished struct{ Status verification.Result }
	CloseVerification    struct{}

	ToggleMobileMenu  struct{}
	ShowKYCWarning    struct{}
	DismissKYCWarning struct{}

	SetCreators struct{ Creators []models.Creator }
	LikeCreator struct{ ID int }
	SetPosts    struct{ Posts []models.Post }
	AddPost     struct{ Post models.Post }
	LikePost    struct{ ID int }
	AddComment  struct {
		PostID  int
		Comment models.Comment
	}
	LikeComment struct {
		PostID    int
		CommentID string
	}

	SetError   struct{ Err *apperr.Error }
	ClearError struct{}
)

func (Restored) action()             {}
func (BootFinished) action()         {}
func (AcceptDisclaimer) action()     {}
func (DeclineDisclaimer) action()    {}
func (Navigate) action()             {}
func (SelectCreator) action()        {}
func (CloseCreator) action()         {}
func (OpenLogin) action()            {}
func (CloseLogin) action()           {}
func (SignedIn) action()             {}
func (SignedOut) action()            {}
func (OpenProfileEdit) action()      {}
func (CloseProfileEdit) action()     {}
func (ProfileSaved) action()         {}
func (ToggleCreator) action()        {}
func (StartVerification) action()    {}
func (VerificationReady) action()    {}
func (VerificationFinished) action() {}
func (CloseVerification) action()    {}
func (ToggleMobileMenu) action()     {}
func (ShowKYCWarning) action()       {}
func (DismissKYCWarning) action()    {}
func (SetCreators) action()          {}
func (LikeCreator) action()          {}
func (SetPosts) action()             {}
func (AddPost) action()              {}
func (LikePost) action()             {}
func (AddComment) action()           {}
func (LikeComment) action()          {}
func (SetError) action()             {}
func (ClearError) action()           {}

// ErrUnknownAction is returned by DecodeAction for types clients may not send.
var ErrUnknownAction = apperr.Newf(apperr.ValidationRequiredField, "Unknown action type")

// DecodeAction parses a client-sent action such as {"type":"navigate","page":"creators"}.
// Only user-driven actions are accepted; auth, profile and data results come
// from the server side.
func DecodeAction(body []byte) (Action, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperr.Newf(apperr.ValidationRequiredField, "Invalid JSON")
	}
	doc := gjson.ParseBytes(body)
	switch t := doc.Get("type").String(); t {
	case "accept_disclaimer":
		return AcceptDisclaimer{}, nil
	case "decline_disclaimer":
		return DeclineDisclaimer{}, nil
	case "navigate":
		p := Page(doc.Get("page").String())
		if !p.Valid() || p == PageCreatorProfile {
			return nil, apperr.Newf(apperr.ValidationRequiredField, fmt.Sprintf("Invalid page %q", p)).
				WithDetails(map[string]any{"page": "Unknown page"})
		}
		return Navigate{Page: p}, nil
	case "select_creator":
		id := doc.Get("id")
		if id.Type != gjson.Number {
			return nil, apperr.Newf(apperr.ValidationRequiredField, "Creator id is required").
				WithDetails(map[string]any{"id": "Creator id is required"})
		}
		return SelectCreator{ID: int(id.Int())}, nil
	case "close_creator":
		return CloseCreator{}, nil
	case "open_login":
		return OpenLogin{}, nil
	case "close_login":
		return CloseLogin{}, nil
	case "open_profile_edit":
		return OpenProfileEdit{}, nil
	case "close_profile_edit":
		return CloseProfileEdit{}, nil
	case "close_verification":
		return CloseVerification{}, nil
	case "toggle_mobile_menu":
		return ToggleMobileMenu{}, nil
	case "show_kyc_warning":
		return ShowKYCWarning{}, nil
	case "dismiss_kyc_warning":
		return DismissKYCWarning{}, nil
	case "clear_error":
		return ClearError{}, nil
	default:
		return nil, ErrUnknownAction.WithDetails(map[string]any{"type": t})
	}
}

// actionName is used in logs.
func actionName(a Action) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", a), "viewstate.")
}
