package jwttoken

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cpcaisse/pkg/domain-errors"
	authmw "cpcaisse/pkg/platform/middleware/auth"
)

var jwtService = NewHS256("test-signing-key", "bq-cp-intranet")

var subject = Subject{
	Matricule: "SUP-056",
	Nom:       "M. CHAABANE",
	Role:      "SUPERVISEUR",
	Agence:    "056",
	Region:    "Grand Tunis",
}

var expiresIn = 8 * time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	issued, err := jwtService.GenerateAccessToken(subject, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.JTI)

	claims, err := jwtService.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "SUP-056", claims.Subject)
	assert.Equal(t, "SUPERVISEUR", claims.Role)
	assert.Equal(t, "056", claims.Agence)
	assert.Equal(t, issued.JTI, claims.ID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.NotErrorIs(t, err, authmw.ErrTokenExpired)
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	issued, err := jwtService.GenerateAccessToken(subject, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(issued.Token)
	require.ErrorIs(t, err, authmw.ErrTokenExpired)
}

func Test_ValidateToken_WrongIssuerOrKey(t *testing.T) {
	issued, err := NewHS256("test-signing-key", "another-issuer").GenerateAccessToken(subject, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(issued.Token)
	assert.Error(t, err)

	issued, err = NewHS256("another-key", "bq-cp-intranet").GenerateAccessToken(subject, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(issued.Token)
	assert.Error(t, err)
}

func writeKeyPair(t *testing.T) (string, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	private := filepath.Join(dir, "jwt-private.pem")
	require.NoError(t, os.WriteFile(private, pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), 0o600))

	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	public := filepath.Join(dir, "jwt-public.pem")
	require.NoError(t, os.WriteFile(public, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub}), 0o600))
	return public, private
}

func Test_RS256(t *testing.T) {
	public, private := writeKeyPair(t)

	signer, err := LoadRS256(public, private, "bq-cp-intranet")
	require.NoError(t, err)
	assert.Equal(t, "RS256", signer.Algorithm())

	issued, err := signer.GenerateAccessToken(subject, expiresIn)
	require.NoError(t, err)

	verifier, err := LoadRS256(public, "", "bq-cp-intranet")
	require.NoError(t, err)
	claims, err := verifier.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "SUP-056", claims.Subject)

	_, err = verifier.GenerateAccessToken(subject, expiresIn)
	assert.Error(t, err, "a verify-only service cannot sign")

	hs, err := jwtService.GenerateAccessToken(subject, expiresIn)
	require.NoError(t, err)
	_, err = verifier.ValidateToken(hs.Token)
	assert.Error(t, err, "an HS256 token must not pass an RS256 verifier")
}

func Test_ToMiddlewareClaims_Defaults(t *testing.T) {
	issued, err := jwtService.GenerateAccessToken(Subject{Matricule: "CAI-777"}, expiresIn)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(jwtService).ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "CAI-777", claims.Matricule)
	assert.Equal(t, "CAI-777", claims.Nom)
	assert.Equal(t, "CAISSIER", claims.Role)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.Equal(t, issued.ExpiresAt.Unix(), claims.ExpiresAt)
}
