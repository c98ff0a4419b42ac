package viewstate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naughtyden-us/naughty-den/pkg/content"
	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/verification"
)

func readyState(t *testing.T) State {
	t.Helper()
	s := Reduce(Initial(), SetCreators{Creators: content.SeedCreators()})
	s = Reduce(s, BootFinished{})
	s = Reduce(s, AcceptDisclaimer{})
	require.Equal(t, PhaseReady, s.Phase)
	require.False(t, s.Overlays.AgeGate)
	return s
}

func signedIn(t *testing.T, s State) State {
	t.Helper()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	u := models.User{UID: "u1", Email: "a@b.com"}
	return Reduce(s, SignedIn{User: u, Profile: models.NewProfile(u, now), Created: true})
}

func TestBootShowsAgeGateUntilAccepted(t *testing.T) {
	s := Reduce(Initial(), BootFinished{})
	assert.Equal(t, PhaseReady, s.Phase)
	assert.True(t, s.Overlays.AgeGate)

	blocked := Reduce(s, Navigate{Page: PageCreators})
	assert.Equal(t, PageHome, blocked.Page)
	blocked = Reduce(s, OpenLogin{})
	assert.False(t, blocked.Overlays.Login)

	s = Reduce(s, AcceptDisclaimer{})
	assert.True(t, s.AgeConfirmed)
	s = Reduce(s, Navigate{Page: PageCreators})
	assert.Equal(t, PageCreators, s.Page)
}

func TestBootSkipsGateWhenConfirmed(t *testing.T) {
	s := Reduce(Initial(), Restored{Persisted: Persisted{AgeConfirmed: true}})
	s = Reduce(s, BootFinished{})
	assert.False(t, s.Overlays.AgeGate)
}

func TestNavigationIgnoredWhileLoading(t *testing.T) {
	s := Reduce(Initial(), Navigate{Page: PageLivePosts})
	assert.Equal(t, PageHome, s.Page)
}

func TestDeclineIsTerminal(t *testing.T) {
	s := Reduce(Initial(), BootFinished{})
	s = Reduce(s, DeclineDisclaimer{URL: "https://www.google.com/"})
	assert.Equal(t, PhaseExited, s.Phase)
	assert.Equal(t, "https://www.google.com/", s.ExitURL)

	after := Reduce(s, AcceptDisclaimer{})
	if diff := cmp.Diff(s, after); diff != "" {
		t.Fatalf("exited state changed (-want +got):\n%s", diff)
	}
}

func TestCloseCreatorReturnsToPreviousPage(t *testing.T) {
	s := readyState(t)
	s = Reduce(s, Navigate{Page: PageCreators})
	s = Reduce(s, SelectCreator{ID: 3})
	require.Equal(t, PageCreatorProfile, s.Page)
	require.NotNil(t, s.SelectedCreator)
	assert.Equal(t, "Riyaan Khan", s.SelectedCreator.Name)

	s = Reduce(s, CloseCreator{})
	assert.Equal(t, PageCreators, s.Page)
	assert.Nil(t, s.SelectedCreator)

	s = Reduce(s, Navigate{Page: PageHome})
	s = Reduce(s, SelectCreator{ID: 1})
	s = Reduce(s, CloseCreator{})
	assert.Equal(t, PageHome, s.Page)
}

func TestSelectUnknownCreatorIgnored(t *testing.T) {
	s := readyState(t)
	out := Reduce(s, SelectCreator{ID: 999})
	assert.Equal(t, PageHome, out.Page)
	assert.Nil(t, out.SelectedCreator)
}

func TestLikeCreatorTwice(t *testing.T) {
	s := readyState(t)
	before := append([]models.Creator(nil), s.Creators...)

	out := Reduce(Reduce(s, LikeCreator{ID: 3}), LikeCreator{ID: 3})
	for i, c := range out.Creators {
		want := before[i].Likes
		if c.ID == 3 {
			want += 2
		}
		assert.Equal(t, want, c.Likes, "creator %d", c.ID)
	}
	if diff := cmp.Diff(before, s.Creators); diff != "" {
		t.Fatalf("input state mutated:\n%s", diff)
	}
}

func TestSignedInFirstTimeOpensProfileEdit(t *testing.T) {
	s := readyState(t)
	s = Reduce(s, OpenLogin{})
	require.True(t, s.Overlays.Login)

	s = signedIn(t, s)
	assert.True(t, s.IsAuthenticated)
	assert.False(t, s.Overlays.Login)
	assert.True(t, s.Overlays.ProfileEdit)
	assert.False(t, s.Profile.IsProfileComplete)
}

func TestSignedInCompleteProfileStaysClosed(t *testing.T) {
	s := readyState(t)
	u := models.User{UID: "u2"}
	p := models.NewProfile(u, time.Now())
	p.IsProfileComplete = true
	s = Reduce(s, SignedIn{User: u, Profile: p})
	assert.False(t, s.Overlays.ProfileEdit)
}

func TestToggleCreatorIsAtomic(t *testing.T) {
	s := signedIn(t, readyState(t))
	s = Reduce(s, ProfileSaved{Profile: func() models.Profile {
		p := s.Profile.Clone()
		p.IsProfileComplete = true
		return p
	}()})
	require.False(t, s.Overlays.ProfileEdit)

	s = Reduce(s, ToggleCreator{})
	assert.True(t, s.Profile.IsCreator)
	assert.False(t, s.Profile.IsProfileComplete)
	assert.True(t, s.Overlays.ProfileEdit)
}

func TestVerificationFinished(t *testing.T) {
	s := signedIn(t, readyState(t))
	s = Reduce(s, StartVerification{})
	s = Reduce(s, VerificationReady{URL: "https://v/1"})
	require.True(t, s.Overlays.Verification)
	assert.Equal(t, "https://v/1", s.VerificationURL)

	s = Reduce(s, VerificationFinished{Status: verification.ResultSuccess})
	assert.False(t, s.Overlays.Verification)
	assert.Equal(t, models.VerificationVerified, s.Profile.VerificationStatus)
	assert.True(t, s.Profile.IsVerified)

	s = Reduce(s, VerificationFinished{Status: verification.ResultFailed})
	assert.Equal(t, models.VerificationFailed, s.Profile.VerificationStatus)
	assert.True(t, s.Profile.IsVerified, "verified flag is permanent")
}

func TestSignedOutClearsSession(t *testing.T) {
	s := signedIn(t, readyState(t))
	s = Reduce(s, Navigate{Page: PageLivePosts})
	s = Reduce(s, ShowKYCWarning{})
	s = Reduce(s, SignedOut{})

	assert.False(t, s.IsAuthenticated)
	assert.Nil(t, s.User)
	assert.Nil(t, s.Profile)
	assert.Equal(t, PageHome, s.Page)
	assert.Equal(t, Overlays{}, s.Overlays)
	assert.True(t, s.AgeConfirmed)
}

func TestMyProfileRequiresSignIn(t *testing.T) {
	s := readyState(t)
	s = Reduce(s, Navigate{Page: PageMyProfile})
	assert.Equal(t, PageHome, s.Page)
	assert.True(t, s.Overlays.Login)
}

func TestPostActions(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s := Reduce(Initial(), SetPosts{Posts: content.SeedPosts(now)})
	require.Len(t, s.Posts, 1)
	id := s.Posts[0].ID
	likes := s.Posts[0].Likes
	comments := len(s.Posts[0].Comments)

	s = Reduce(s, LikePost{ID: id})
	s = Reduce(s, AddComment{PostID: id, Comment: models.Comment{ID: "c-new", User: "me", Text: "hi"}})
	s = Reduce(s, LikeComment{PostID: id, CommentID: "c-new"})
	assert.Equal(t, likes+1, s.Posts[0].Likes)
	require.Len(t, s.Posts[0].Comments, comments+1)
	assert.Equal(t, 1, s.Posts[0].Comments[comments].Likes)

	s = Reduce(s, AddPost{Post: models.Post{ID: id + 1, Content: "new"}})
	assert.Equal(t, id+1, s.Posts[0].ID)
}

func TestPersistedSlice(t *testing.T) {
	s := signedIn(t, readyState(t))
	p := s.Persisted()
	assert.True(t, p.IsAuthenticated)
	assert.True(t, p.AgeConfirmed)
	assert.Equal(t, "u1", p.User.UID)
	assert.Equal(t, "u1", p.Profile.UID)
}

func TestDecodeAction(t *testing.T) {
	cases := []struct {
		body string
		want Action
	}{
		{`{"type":"navigate","page":"creators"}`, Navigate{Page: PageCreators}},
		{`{"type":"select_creator","id":3}`, SelectCreator{ID: 3}},
		{`{"type":"accept_disclaimer"}`, AcceptDisclaimer{}},
		{`{"type":"toggle_mobile_menu"}`, ToggleMobileMenu{}},
	}
	for _, tc := range cases {
		got, err := DecodeAction([]byte(tc.body))
		require.NoError(t, err, tc.body)
		assert.Equal(t, tc.want, got, tc.body)
	}

	for _, bad := range []string{
		`{"type":"navigate","page":"creator-profile"}`,
		`{"type":"select_creator"}`,
		`{"type":"signed_in"}`,
		`nope`,
	} {
		_, err := DecodeAction([]byte(bad))
		assert.Error(t, err, bad)
	}
}
