package model

import "time"

// ApplicationStatus represents the review state of a trusted application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// RevokedReason is stamped on applications when an admin revokes trusted status.
const RevokedReason = "revoked by admin"

// TrustedApplication is a request for trusted professional status.
type TrustedApplication struct {
	ID              string            `json:"id" bson:"_id"`
	UserID          string            `json:"user_id" bson:"user_id"`
	UserEmail       string            `json:"user_email" bson:"user_email"`
	UserName        string            `json:"user_name" bson:"user_name"`
	Message         string            `json:"message,omitempty" bson:"message,omitempty"`
	DocumentKey     string            `json:"-" bson:"document_key,omitempty"`
	DocumentName    string            `json:"document_name,omitempty" bson:"document_name,omitempty"`
	Status          ApplicationStatus `json:"status" bson:"status"`
	SubmittedAt     time.Time         `json:"submitted_at" bson:"submitted_at"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty" bson:"reviewed_at,omitempty"`
	ReviewedBy      string            `json:"reviewed_by,omitempty" bson:"reviewed_by,omitempty"`
	ReviewerName    string            `json:"reviewer_name,omitempty" bson:"reviewer_name,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
}

// HasDocument reports whether a credential file was uploaded.
func (a *TrustedApplication) HasDocument() bool {
	return a.DocumentKey != ""
}
