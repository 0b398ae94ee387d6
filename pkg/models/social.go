package models

import "time"

type UserProfile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Name           string    `json:"name,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	Role           string    `json:"role"`
	FollowerCount  int       `json:"follower_count"`
	FollowingCount int       `json:"following_count"`
	PostCount      int       `json:"post_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserSummary is the author/actor block embedded in posts, comments and notifications.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type Post struct {
	ID             int64       `json:"id"`
	UserID         string      `json:"user_id"`
	RestaurantID   *int64      `json:"restaurant_id,omitempty"`
	RestaurantName string      `json:"restaurant_name,omitempty"`
	Content        string      `json:"content"`
	Rating         *int        `json:"rating,omitempty"`
	ImageURL       string      `json:"image_url,omitempty"`
	LikeCount      int         `json:"like_count"`
	CommentCount   int         `json:"comment_count"`
	Author         UserSummary `json:"author"`
	CreatedAt      time.Time   `json:"created_at"`
}

type Comment struct {
	ID        int64       `json:"id"`
	PostID    int64       `json:"post_id"`
	UserID    string      `json:"user_id"`
	Content   string      `json:"content"`
	Author    UserSummary `json:"author"`
	CreatedAt time.Time   `json:"created_at"`
}

type Favorite struct {
	UserID     string     `json:"user_id"`
	Restaurant Restaurant `json:"restaurant"`
	CreatedAt  time.Time  `json:"created_at"`
}
