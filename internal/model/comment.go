package model

import "time"

// ReplyRef points a reply at its top-level comment and names the user replied to.
type ReplyRef struct {
	CommentID string `json:"comment_id" bson:"comment_id"`
	Username  string `json:"username" bson:"username"`
}

// Comment belongs to one item. Replies are one level deep.
type Comment struct {
	ID        string    `json:"id" bson:"_id"`
	ItemKind  ItemKind  `json:"item_kind" bson:"item_kind"`
	ItemID    string    `json:"item_id" bson:"item_id"`
	Content   string    `json:"content" bson:"content"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Username  string    `json:"username" bson:"username"`
	PhotoURL  string    `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
	Likes     []string  `json:"likes" bson:"likes"`
	ReplyTo   *ReplyRef `json:"reply_to,omitempty" bson:"reply_to,omitempty"`
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ReplyTo != nil
}

// LikedBy reports whether userID is in the like set.
func (c *Comment) LikedBy(userID string) bool {
	for _, id := range c.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// CommentThread is a top-level comment with its flattened replies.
type CommentThread struct {
	Comment
	Replies []Comment `json:"replies"`
}
