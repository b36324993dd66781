package model

import (
	"fmt"
	"time"
)

// VoteType is the exclusive choice a user holds on an item.
type VoteType string

const (
	VoteLikes    VoteType = "likes"
	VoteDislikes VoteType = "dislikes"
)

// Valid reports whether t is one of the two vote types.
func (t VoteType) Valid() bool {
	return t == VoteLikes || t == VoteDislikes
}

// Vote is keyed by (item, user); at most one exists per pair.
type Vote struct {
	ID        string    `json:"-" bson:"_id"`
	ItemKind  ItemKind  `json:"item_kind" bson:"item_kind"`
	ItemID    string    `json:"item_id" bson:"item_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Type      VoteType  `json:"type" bson:"type"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// VoteID derives the deterministic document id for a (item, user) pair.
func VoteID(ref ItemRef, userID string) string {
	return fmt.Sprintf("%s:%s:%s", ref.Kind, ref.ID, userID)
}
