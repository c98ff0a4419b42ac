package content

import (
	"strconv"
	"time"

	"github.com/naughtyden-us/naughty-den/pkg/models"
)

const unsplash = "https://images.unsplash.com/"

func img(id string, w int) string {
	return unsplash + id + "?q=80&w=" + strconv.Itoa(w) + "&auto=format&fit=crop"
}

// SeedCreators returns the featured creator listing.
func SeedCreators() []models.Creator {
	return []models.Creator{
		{ID: 1, Name: "Jon Ly", Rating: 4.8, Price: 34.50, Image: img("photo-1630280717628-7d0d071cf2e3", 1160), Type: "Landscape"},
		{ID: 2, Name: "Seth Doyle", Rating: 4.6, Price: 32.00, IsAd: true, Image: img("photo-1630520707335-9e4e79b731c3", 1160), Type: "Portrait"},
		{ID: 3, Name: "Riyaan Khan", Rating: 4.9, Price: 35.50, Image: img("photo-1550428083-7019ebe39b45", 1102), Type: "Landscape"},
		{ID: 4, Name: "Maria Rodriguez", Rating: 4.7, Price: 32.50, Image: img("photo-1728463087178-a8c804a5eec2", 1160), Type: "Architecture"},
		{ID: 5, Name: "Sofia Mykyte", Rating: 4.7, Price: 37.00, IsAd: true, Image: img("photo-1673379421016-b84b1dc410ca", 1092), Type: "Architecture"},
		{ID: 6, Name: "Hao Leong", Rating: 4.8, Price: 38.00, Image: img("photo-1584996433468-6e702c8fc9d9", 1160), Type: "Architecture"},
		{ID: 7, Name: "Jordan Travers", Rating: 4.5, Price: 30.00, Image: img("photo-1676328012648-ee16da2e08d8", 1233), Type: "Portrait"},
		{ID: 8, Name: "Jordan Travers", Rating: 4.5, Price: 30.00, Image: img("photo-1676328012648-ee16da2e08d8", 1233), Type: "Portrait"},
	}
}

// SeedPosts returns the single live post shown on first load.
func SeedPosts(now time.Time) []models.Post {
	return []models.Post{{
		ID:           1,
		CreatorName:  "Jon Ly",
		CreatorImage: img("photo-1630280717628-7d0d071cf2e3", 1160),
		Content:      "Live from the studio! Working on some new looks for my next project. What do you think?",
		Likes:        58,
		Comments: []models.Comment{
			{ID: "1", User: "User1", Text: "This is amazing! ❤️", CreatedAt: now},
			{ID: "2", User: "User2", Text: "Love the creativity!", CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
		IsPublic:  true,
	}}
}
