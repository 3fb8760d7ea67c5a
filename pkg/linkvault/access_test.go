package linkvault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	unprotected := &ContentRecord{}
	protected := &ContentRecord{PasswordHash: hash}

	assert.True(t, VerifyPassword(unprotected, ""))
	assert.True(t, VerifyPassword(unprotected, "anything"))

	assert.False(t, VerifyPassword(protected, ""))
	assert.False(t, VerifyPassword(protected, "battery staple"))
	assert.True(t, VerifyPassword(protected, "correct horse"))
}

func TestHashPasswordNeverStoresPlaintext(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotContains(t, hash, "s3cret")
}

func TestVerifyDeleteCredential(t *testing.T) {
	rec := &ContentRecord{DeleteToken: "token-abc", OwnerID: "owner-1"}
	anonymous := &ContentRecord{DeleteToken: "token-abc"}

	tests := []struct {
		name string
		rec  *ContentRecord
		cred DeleteCredential
		want bool
	}{
		{"system always authorized", rec, SystemCredential(), true},
		{"matching token", rec, DeleteCredential{Token: "token-abc"}, true},
		{"wrong token", rec, DeleteCredential{Token: "token-xyz"}, false},
		{"matching owner", rec, DeleteCredential{OwnerID: "owner-1"}, true},
		{"wrong owner", rec, DeleteCredential{OwnerID: "owner-2"}, false},
		{"empty credential", rec, DeleteCredential{}, false},
		{"owner claim against anonymous record", anonymous, DeleteCredential{OwnerID: "owner-1"}, false},
		{"wrong token but matching owner", rec, DeleteCredential{Token: "nope", OwnerID: "owner-1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyDeleteCredential(tt.rec, tt.cred))
		})
	}
}
