package models

import "time"

// Thread is a forum topic. Deleting a thread removes all of its posts in
// the same transaction.
type Thread struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title     string    `json:"title" gorm:"type:varchar(255)"`
	UserID    string    `json:"user_id" gorm:"index;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a single forum message. EditedAt is set the first time the
// owner edits the content and drives the "edited" indicator. Hidden
// posts keep their content in storage but are redacted for non-admin
// viewers.
type Post struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ThreadID  string     `json:"thread_id" gorm:"index;type:varchar(36)"`
	UserID    string     `json:"user_id" gorm:"index;type:varchar(36)"`
	Content   string     `json:"content" gorm:"type:text"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	Hidden    bool       `json:"hidden"`
}

// ThreadSummary is a forum index row: a thread plus the post count the
// viewer is allowed to see.
type ThreadSummary struct {
	Thread
	PostCount int `json:"post_count"`
}
