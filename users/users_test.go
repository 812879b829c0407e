package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	u := NewUser("u", "p")

	tests := []struct {
		name     string
		username string
		password string
		remote   string
		wantErr  error
	}{
		{name: "match", username: "u", password: "p", remote: "10.0.0.1:5000"},
		{name: "bad password", username: "u", password: "x", remote: "10.0.0.1:5000", wantErr: ErrUnauthorized},
		{name: "bad username", username: "x", password: "p", remote: "10.0.0.1:5000", wantErr: ErrUnauthorized},
		{name: "empty", remote: "10.0.0.1:5000", wantErr: ErrUnauthorized},
		{name: "password is case sensitive", username: "u", password: "P", remote: "10.0.0.1:5000", wantErr: ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := u.Verify(tt.username, tt.password, tt.remote)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifySecret(t *testing.T) {
	u := NewUser("", "secret")
	assert.NoError(t, u.VerifySecret("secret", "127.0.0.1:1"))
	assert.ErrorIs(t, u.VerifySecret("secret ", "127.0.0.1:1"), ErrUnauthorized)
	assert.ErrorIs(t, u.VerifySecret("", "127.0.0.1:1"), ErrUnauthorized)
}

func TestAllowedNetworks(t *testing.T) {
	u := NewUser("u", "p")
	require.NoError(t, u.AddIP("192.168.1.0/24"))
	require.NoError(t, u.AddIP("127.0.0.1"))
	assert.Error(t, u.AddIP("not-an-ip"))

	assert.True(t, u.Allowed("192.168.1.77:2121"))
	assert.True(t, u.Allowed("127.0.0.1:40000"))
	assert.True(t, u.Allowed("[::ffff:127.0.0.1]:40000"))
	assert.False(t, u.Allowed("10.0.0.1:2121"))
	assert.False(t, u.Allowed("garbage"))

	assert.ErrorIs(t, u.Verify("u", "p", "10.0.0.1:2121"), ErrAddressNotAllowed)
	assert.NoError(t, u.Verify("u", "p", "192.168.1.2:2121"))
}
