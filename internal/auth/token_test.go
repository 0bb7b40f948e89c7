package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)
	tm := NewTokenManager("test-secret", 60)

	role := domain.StaffRoleOfficer
	dept := domain.DepartmentWater
	token, expiresAt, err := tm.GenerateToken("s-1", domain.SubjectTypeStaff, &role, &dept)
	req.NoError(err)
	req.True(expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	req.NoError(err)
	req.Equal("s-1", claims.SubjectID)
	req.Equal(domain.SubjectTypeStaff, claims.Subject)
	req.Equal(role, *claims.Role)
	req.Equal(dept, *claims.Department)
}

func TestPetitionerTokenHasNoRole(t *testing.T) {
	req := require.New(t)
	tm := NewTokenManager("test-secret", 60)

	token, _, err := tm.GenerateToken("p-1", domain.SubjectTypePetitioner, nil, nil)
	req.NoError(err)

	claims, err := tm.ParseToken(token)
	req.NoError(err)
	req.Equal(domain.SubjectTypePetitioner, claims.Subject)
	req.Nil(claims.Role)
	req.Nil(claims.Department)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenManager("secret-a", 60)
	verifier := NewTokenManager("secret-b", 60)

	token, _, err := issuer.GenerateToken("p-1", domain.SubjectTypePetitioner, nil, nil)
	req.NoError(err)

	_, err = verifier.ParseToken(token)
	req.Error(err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	tm := &TokenManager{secret: []byte("test-secret"), ttl: -time.Minute}

	token, _, err := tm.GenerateToken("p-1", domain.SubjectTypePetitioner, nil, nil)
	req.NoError(err)

	_, err = tm.ParseToken(token)
	req.Error(err)
}

func TestParseRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	_, err := tm.ParseToken("not-a-token")
	require.Error(t, err)
}
