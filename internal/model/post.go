package model

import "time"

// Post はユーザーが作成するブログ記事を表す。
type Post struct {
	ID        string
	Title     string
	Content   string
	Published bool
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
