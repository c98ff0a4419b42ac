package viewstate

import (
	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/verification"
)

// Reduce returns the state after applying a. It performs no I/O and never
// mutates s; slices are copied before they change.
func Reduce(s State, a Action) State {
	if s.Phase == PhaseExited {
		return s
	}

	switch a := a.(type) {
	case Restored:
		p := a.Persisted
		s.IsAuthenticated = p.IsAuthenticated && p.User != nil
		s.User = cloneUser(p.User)
		s.Profile = cloneProfile(p.Profile)
		s.AgeConfirmed = p.AgeConfirmed

	case BootFinished:
		if s.Phase == PhaseLoading {
			s.Phase = PhaseReady
			s.Overlays.AgeGate = !s.AgeConfirmed
		}

	case AcceptDisclaimer:
		if s.Phase == PhaseReady {
			s.AgeConfirmed = true
			s.Overlays.AgeGate = false
		}

	case DeclineDisclaimer:
		if s.Overlays.AgeGate {
			s.Phase = PhaseExited
			s.ExitURL = a.URL
		}

	case SignedIn:
		u := a.User
		p := a.Profile.Clone()
		s.User = &u
		s.Profile = &p
		s.IsAuthenticated = true
		s.Overlays.Login = false
		if a.Created || !p.IsProfileComplete {
			s.Overlays.ProfileEdit = true
		}

	case SignedOut:
		s.User = nil
		s.Profile = nil
		s.IsAuthenticated = false
		s.Overlays.Login = false
		s.Overlays.ProfileEdit = false
		s.Overlays.KYCWarning = false
		s.Overlays.Verification = false
		s.Overlays.MobileMenu = false
		s.VerificationURL = ""
		s.Page = PageHome
		s.PrevPage = ""
		s.SelectedCreator = nil

	case ProfileSaved:
		p := a.Profile.Clone()
		s.Profile = &p
		s.Overlays.ProfileEdit = false

	case VerificationReady:
		if s.Overlays.Verification {
			s.VerificationURL = a.URL
		}

	case VerificationFinished:
		if s.Profile != nil {
			p := s.Profile.Clone()
			p.VerificationStatus = verificationStatus(a.Status)
			if a.Status == verification.ResultSuccess {
				p.IsVerified = true
			}
			s.Profile = &p
		}
		s.Overlays.Verification = false
		s.VerificationURL = ""

	case CloseVerification:
		s.Overlays.Verification = false
		s.VerificationURL = ""

	case SetCreators:
		s.Creators = append([]models.Creator{}, a.Creators...)
		s.SelectedCreator = findCreator(s.Creators, s.SelectedCreator)

	case LikeCreator:
		s.Creators = append([]models.Creator(nil), s.Creators...)
		for i := range s.Creators {
			if s.Creators[i].ID == a.ID {
				s.Creators[i].Likes++
			}
		}
		s.SelectedCreator = findCreator(s.Creators, s.SelectedCreator)

	case SetPosts:
		s.Posts = clonePosts(a.Posts)

	case AddPost:
		s.Posts = append([]models.Post{a.Post.Clone()}, clonePosts(s.Posts)...)

	case LikePost:
		s.Posts = updatePost(s.Posts, a.ID, func(p *models.Post) { p.Likes++ })

	case AddComment:
		s.Posts = updatePost(s.Posts, a.PostID, func(p *models.Post) {
			p.Comments = append(p.Comments, a.Comment)
		})

	case LikeComment:
		s.Posts = updatePost(s.Posts, a.PostID, func(p *models.Post) {
			for i := range p.Comments {
				if p.Comments[i].ID == a.CommentID {
					p.Comments[i].Likes++
				}
			}
		})

	case SetError:
		s.Error = a.Err

	case ClearError:
		s.Error = nil

	default:
		if !s.gated() {
			s = reduceView(s, a)
		}
	}
	return s
}

// reduceView handles the user-driven actions the age gate blocks.
func reduceView(s State, a Action) State {
	switch a := a.(type) {
	case Navigate:
		if !a.Page.Valid() || a.Page == PageCreatorProfile {
			return s
		}
		if a.Page == PageMyProfile && !s.IsAuthenticated {
			s.Overlays.Login = true
			return s
		}
		s.Page = a.Page
		s.PrevPage = ""
		s.SelectedCreator = nil
		s.Overlays.MobileMenu = false

	case SelectCreator:
		for i := range s.Creators {
			if s.Creators[i].ID == a.ID {
				c := s.Creators[i]
				if s.Page != PageCreatorProfile {
					s.PrevPage = s.Page
				}
				s.Page = PageCreatorProfile
				s.SelectedCreator = &c
				s.Overlays.MobileMenu = false
				break
			}
		}

	case CloseCreator:
		if s.Page != PageCreatorProfile {
			return s
		}
		s.Page = s.PrevPage
		if s.Page == "" {
			s.Page = PageHome
		}
		s.PrevPage = ""
		s.SelectedCreator = nil

	case OpenLogin:
		if !s.IsAuthenticated {
			s.Overlays.Login = true
		}

	case CloseLogin:
		s.Overlays.Login = false

	case OpenProfileEdit:
		if s.Profile != nil {
			s.Overlays.ProfileEdit = true
		}

	case CloseProfileEdit:
		s.Overlays.ProfileEdit = false

	case ToggleCreator:
		if s.Profile == nil {
			return s
		}
		var p models.Profile
		if a.Stored != nil {
			p = a.Stored.Clone()
		} else {
			p = s.Profile.Clone()
			p.IsCreator = !p.IsCreator
			p.IsProfileComplete = false
		}
		s.Profile = &p
		s.Overlays.ProfileEdit = true

	case StartVerification:
		if s.Profile != nil {
			s.Overlays.Verification = true
			s.Overlays.KYCWarning = false
			s.VerificationURL = ""
		}

	case ToggleMobileMenu:
		s.Overlays.MobileMenu = !s.Overlays.MobileMenu

	case ShowKYCWarning:
		s.Overlays.KYCWarning = true

	case DismissKYCWarning:
		s.Overlays.KYCWarning = false
	}
	return s
}

func verificationStatus(r verification.Result) models.VerificationStatus {
	switch r {
	case verification.ResultSuccess:
		return models.VerificationVerified
	case verification.ResultPending:
		return models.VerificationPending
	default:
		return models.VerificationFailed
	}
}

func findCreator(list []models.Creator, sel *models.Creator) *models.Creator {
	if sel == nil {
		return nil
	}
	for i := range list {
		if list[i].ID == sel.ID {
			c := list[i]
			return &c
		}
	}
	return sel
}

func updatePost(posts []models.Post, id int, fn func(*models.Post)) []models.Post {
	out := make([]models.Post, len(posts))
	for i := range posts {
		out[i] = posts[i]
		if posts[i].ID == id {
			out[i] = posts[i].Clone()
			fn(&out[i])
		}
	}
	return out
}

func clonePosts(posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	for i := range posts {
		out[i] = posts[i].Clone()
	}
	return out
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}

func cloneProfile(p *models.Profile) *models.Profile {
	if p == nil {
		return nil
	}
	v := p.Clone()
	return &v
}
