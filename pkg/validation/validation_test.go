package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginRejectsBadEmailAndShortPassword(t *testing.T) {
	r := Login(LoginForm{Email: "not-an-email", Password: "ab"})
	assert.False(t, r.Valid)
	assert.Contains(t, r.Errors["email"], "valid email address")
	assert.Contains(t, r.Errors["password"], "at least 6 characters")
	assert.Len(t, r.Errors, 2)
}

func TestLoginRequiredFields(t *testing.T) {
	r := Login(LoginForm{Email: "  ", Password: ""})
	assert.Equal(t, "Email is required", r.Errors["email"])
	assert.Equal(t, "Password is required", r.Errors["password"])
}

func TestSignupOnlyDisplayNameFails(t *testing.T) {
	r := Signup(SignupForm{Email: "a@b.com", Password: "abcdef", DisplayName: "A"})
	assert.False(t, r.Valid)
	assert.Equal(t, map[string]string{"displayName": "Display name must be at least 2 characters"}, r.Errors)
}

func TestProfileBounds(t *testing.T) {
	cases := []struct {
		name  string
		form  ProfileForm
		field string
	}{
		{"ok", ProfileForm{DisplayName: "Jo", Bio: strings.Repeat("b", 500), Categories: make([]string, 10)}, ""},
		{"long name", ProfileForm{DisplayName: strings.Repeat("n", 51)}, "displayName"},
		{"long bio", ProfileForm{DisplayName: "Jo", Bio: strings.Repeat("b", 501)}, "bio"},
		{"many categories", ProfileForm{DisplayName: "Jo", Categories: make([]string, 11)}, "categories"},
		{"bad photo", ProfileForm{DisplayName: "Jo", PhotoURL: "not a url"}, "photoURL"},
		{"uploaded photo", ProfileForm{DisplayName: "Jo", PhotoURL: "/files/u1/me.png"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Profile(tc.form)
			if tc.field == "" {
				assert.True(t, r.Valid, r.Errors)
				return
			}
			assert.False(t, r.Valid)
			assert.Contains(t, r.Errors, tc.field)
		})
	}
}

func TestDisplayNameIsTrimmed(t *testing.T) {
	r := Profile(ProfileForm{DisplayName: "  J  "})
	assert.Equal(t, "Display name must be at least 2 characters", r.Errors["displayName"])
}

func TestPostContent(t *testing.T) {
	assert.True(t, PostContent("a perfectly normal update").Valid)
	assert.Equal(t, "Post content must be at least 10 characters", PostContent("short").Errors["content"])
	assert.Equal(t, "Content contains inappropriate language", PostContent("this is not a SCAM at all").Errors["content"])
	assert.Equal(t, "Post content must be less than 1000 characters", PostContent(strings.Repeat("x", 1001)).Errors["content"])
}

func TestComment(t *testing.T) {
	assert.True(t, Comment("nice").Valid)
	assert.Equal(t, "Comment is required", Comment("   ").Errors["text"])
	assert.False(t, Comment(strings.Repeat("c", 501)).Valid)
}

func TestFile(t *testing.T) {
	assert.True(t, File(1024, "image/png").Valid)
	assert.True(t, File(1024, "image/jpeg; charset=binary").Valid)
	assert.Equal(t, "File size must be less than 5MB", File(MaxFileSize+1, "image/png").Errors["file"])
	assert.Equal(t, "Invalid file type. Only images are allowed", File(10, "application/pdf").Errors["file"])
}

func TestAgeVerification(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.True(t, AgeVerification(time.Date(2006, 6, 15, 0, 0, 0, 0, time.UTC), now).Valid)
	assert.False(t, AgeVerification(time.Date(2006, 6, 16, 0, 0, 0, 0, time.UTC), now).Valid)
	future := AgeVerification(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), now)
	assert.Contains(t, future.Errors, "birthDate")
	assert.Contains(t, future.Errors, "age")
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "scriptalert(1)/script", SanitizeInput("  <script>alert(1)</script> "))
	assert.Equal(t, "alert(1)", SanitizeInput("JavaScript:alert(1)"))
	assert.Equal(t, "img src=x \"bad()\"", SanitizeInput(`<img src=x onerror="bad()">`))
}

func TestPhoneAndURL(t *testing.T) {
	assert.True(t, ValidPhone("+1 (555) 123-4567"))
	assert.False(t, ValidPhone("12345"))
	assert.True(t, ValidURL("https://example.com/x"))
	assert.False(t, ValidURL("example"))
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, Login(LoginForm{Email: "a@b.co", Password: "secret"}).Err())
	err := Login(LoginForm{}).Err()
	assert.EqualError(t, err, "Validation failed")
}
