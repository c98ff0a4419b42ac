package validation

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/naughtyden-us/naughty-den/pkg/apperr"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)

	jsProtoRe = regexp.MustCompile(`(?i)javascript:`)
	handlerRe = regexp.MustCompile(`(?i)on\w+=`)
)

const (
	MinPasswordLen    = 6
	MinDisplayNameLen = 2
	MaxDisplayNameLen = 50
	MaxBioLen         = 500
	MaxCategories     = 10
	MinPostLen        = 10
	MaxPostLen        = 1000
	MaxCommentLen     = 500
	MaxFileSize       = 5 * 1024 * 1024
	MinAge            = 18
)

var AllowedFileTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// words rejected in post bodies
var blockedPostWords = []string{"spam", "scam", "fake"}

// Result maps field names to one message each.
type Result struct {
	Valid  bool              `json:"isValid"`
	Errors map[string]string `json:"errors"`
}

func newResult() Result {
	return Result{Valid: true, Errors: map[string]string{}}
}

func (r *Result) Add(field, message string) {
	r.Valid = false
	r.Errors[field] = message
}

// Err returns nil for a valid result, else a classified error carrying the field messages.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	details := make(map[string]any, len(r.Errors))
	for k, v := range r.Errors {
		details[k] = v
	}
	return apperr.Newf(apperr.ValidationRequiredField, "Validation failed").WithDetails(details)
}

func length(s string) int { return utf8.RuneCountInString(s) }

func ValidEmail(email string) bool { return emailRe.MatchString(email) }

func ValidPhone(phone string) bool { return phoneRe.MatchString(phone) }

// ValidURL reports whether raw parses as an absolute URL.
func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}

func checkEmail(r *Result, email string) {
	switch {
	case strings.TrimSpace(email) == "":
		r.Add("email", "Email is required")
	case !ValidEmail(email):
		r.Add("email", apperr.ValidationInvalidEmail.Message())
	}
}

func checkPassword(r *Result, password string) {
	switch {
	case strings.TrimSpace(password) == "":
		r.Add("password", "Password is required")
	case length(password) < MinPasswordLen:
		r.Add("password", apperr.ValidationInvalidPassword.Message())
	}
}

func checkDisplayName(r *Result, name string) {
	n := length(strings.TrimSpace(name))
	switch {
	case n == 0:
		r.Add("displayName", "Display name is required")
	case n < MinDisplayNameLen:
		r.Add("displayName", "Display name must be at least 2 characters")
	case n > MaxDisplayNameLen:
		r.Add("displayName", "Display name must be less than 50 characters")
	}
}

type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(f LoginForm) Result {
	r := newResult()
	checkEmail(&r, f.Email)
	checkPassword(&r, f.Password)
	return r
}

type SignupForm struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	IsCreator   bool   `json:"isCreator"`
}

func Signup(f SignupForm) Result {
	r := newResult()
	checkEmail(&r, f.Email)
	checkPassword(&r, f.Password)
	checkDisplayName(&r, f.DisplayName)
	return r
}

type ProfileForm struct {
	DisplayName string   `json:"displayName"`
	Bio         string   `json:"bio"`
	Categories  []string `json:"categories"`
	PhotoURL    string   `json:"photoURL,omitempty"`
}

func Profile(f ProfileForm) Result {
	r := newResult()
	checkDisplayName(&r, f.DisplayName)
	if length(f.Bio) > MaxBioLen {
		r.Add("bio", "Bio must be less than 500 characters")
	}
	if len(f.Categories) > MaxCategories {
		r.Add("categories", "You can select up to 10 categories")
	}
	if f.PhotoURL != "" && !ValidURL(f.PhotoURL) && !strings.HasPrefix(f.PhotoURL, "/files/") {
		r.Add("photoURL", "Photo must be a valid URL")
	}
	return r
}

func PostContent(content string) Result {
	r := newResult()
	n := length(strings.TrimSpace(content))
	switch {
	case n == 0:
		r.Add("content", "Post content is required")
	case n < MinPostLen:
		r.Add("content", "Post content must be at least 10 characters")
	case n > MaxPostLen:
		r.Add("content", "Post content must be less than 1000 characters")
	}
	lower := strings.ToLower(content)
	for _, w := range blockedPostWords {
		if strings.Contains(lower, w) {
			r.Add("content", "Content contains inappropriate language")
			break
		}
	}
	return r
}

func Comment(text string) Result {
	r := newResult()
	n := length(strings.TrimSpace(text))
	switch {
	case n == 0:
		r.Add("text", "Comment is required")
	case n > MaxCommentLen:
		r.Add("text", "Comment must be less than 500 characters")
	}
	return r
}

// File checks an upload's size and declared or sniffed content type.
func File(size int64, contentType string) Result {
	return FileWithLimits(size, contentType, MaxFileSize, AllowedFileTypes)
}

func FileWithLimits(size int64, contentType string, maxSize int64, allowed []string) Result {
	r := newResult()
	if size > maxSize {
		r.Add("file", apperr.ValidationFileTooLarge.Message())
		return r
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, a := range allowed {
		if ct == a {
			return r
		}
	}
	r.Add("file", apperr.ValidationInvalidFileType.Message())
	return r
}

// AgeVerification checks birth against now in whole calendar years.
func AgeVerification(birth, now time.Time) Result {
	r := newResult()
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < MinAge {
		r.Add("age", "You must be at least 18 years old to use this service")
	}
	if birth.After(now) {
		r.Add("birthDate", "Birth date cannot be in the future")
	}
	return r
}

// SanitizeInput trims and strips markup brackets, javascript: and inline handlers.
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = jsProtoRe.ReplaceAllString(s, "")
	return handlerRe.ReplaceAllString(s, "")
}
