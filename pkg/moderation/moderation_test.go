package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/store/storedb"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

func TestCheckContent(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		reason string
	}{
		{"clean", "Had a lovely day at the beach", ""},
		{"words", "this is a scam and a hack", "Contains inappropriate words: scam, hack"},
		{"caps", "WELCOME TO MY PAGE", "Contains excessive capitalization"},
		{"repeated", "soooooo good", "Content appears to be spam"},
		{"links", "http://a.io http://b.io http://c.io http://d.io", "Content appears to be spam"},
		{"special", "!!??..,,;;", "Content appears to be spam"},
		{"adult", "nsfw corner", "Contains adult content keywords"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := CheckContent(tc.in)
			if tc.reason == "" {
				assert.True(t, c.Appropriate, c.Reasons)
				return
			}
			assert.False(t, c.Appropriate)
			assert.Contains(t, c.Reasons, tc.reason)
		})
	}
}

func TestShortCapsAllowed(t *testing.T) {
	assert.True(t, CheckContent("HI MOM").Appropriate)
}

func TestModerateProfile(t *testing.T) {
	d := ModerateProfile(ProfileInput{DisplayName: "Ann", Bio: "selling stolen art", Categories: []string{"Art", "Hack tips"}})
	assert.False(t, d.Approved)
	assert.Equal(t, []string{
		"Bio: Contains inappropriate words: stolen",
		"Inappropriate categories: Hack tips",
	}, d.Reasons)

	assert.True(t, ModerateProfile(ProfileInput{DisplayName: "Ann"}).Approved)
}

func TestAutoModerateConfidence(t *testing.T) {
	assert.Equal(t, 0.8, AutoModerate("nice photo").Confidence)
	bad := AutoModerate("total scam")
	assert.False(t, bad.Approved)
	assert.Equal(t, 0.9, bad.Confidence)
}

func TestHasRepeatedRun(t *testing.T) {
	assert.False(t, hasRepeatedRun("aaaa", 5))
	assert.True(t, hasRepeatedRun("xaaaaa", 5))
	assert.False(t, hasRepeatedRun(strings.Repeat("\n", 6), 5))
}

func openReports(t *testing.T) *Reports {
	t.Helper()
	db, err := storedb.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewReports(db)
}

func TestReportLifecycleAndStats(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	restore := timeutil.SetClock(timeutil.Fixed(start))
	defer restore()

	ctx := context.Background()
	r := openReports(t)

	a, err := r.Submit(ctx, ReportInput{ReporterID: "u1", ContentID: "1", ContentType: models.ContentPost, Reason: "spam"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, a.Status)
	_, err = r.Submit(ctx, ReportInput{ReporterID: "u2", ContentID: "c9", ContentType: models.ContentComment, Reason: "rude"})
	require.NoError(t, err)

	timeutil.SetClock(timeutil.Fixed(start.Add(90 * time.Second)))
	resolved, err := r.Resolve(ctx, a.ID, models.ReportResolved)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)

	st, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalReports: 2, PendingReports: 1, ResolvedReports: 1, AverageResolutionTime: 90}, st)

	got, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, got.Status)
}

func TestSubmitValidates(t *testing.T) {
	r := openReports(t)
	_, err := r.Submit(context.Background(), ReportInput{ContentType: "video"})
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.ValidationRequiredField, appErr.Code)
	assert.Len(t, appErr.Details, 3)
}

func TestResolveMissing(t *testing.T) {
	r := openReports(t)
	_, err := r.Resolve(context.Background(), "nope", models.ReportReviewed)
	assert.True(t, errors.Is(err, apperr.New(apperr.ContentNotFound)))
	_, err = r.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperr.New(apperr.ContentNotFound)))
}
