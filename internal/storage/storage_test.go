package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "trusted-applications/u-1/license.pdf", ApplicationDocumentKey("u-1", "license.pdf"))
	assert.Equal(t, "profile-pictures/u-1", AvatarKey("u-1"))
}

func TestPublicURL(t *testing.T) {
	s := &MinioStore{bucket: "medcircle", endpoint: "files.example.org", secure: true}
	assert.Equal(t, "https://files.example.org/medcircle/profile-pictures/u-1", s.PublicURL(AvatarKey("u-1")))
}

func TestPublicAvatarPolicyCoversOnlyAvatars(t *testing.T) {
	policy := publicAvatarPolicy("medcircle")
	assert.Contains(t, policy, "arn:aws:s3:::medcircle/profile-pictures/*")
	assert.NotContains(t, policy, "trusted-applications")
}
