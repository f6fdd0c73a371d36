package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-ledger/pkg/jwt"
)

const secret = "test-secret-ledger"

func TestGenerateYParse_RecuperaElActor(t *testing.T) {
	actor := jwt.Actor{UserID: "u-1", HospitalID: "h-1", Role: jwt.RoleQuirofano}
	tok, err := jwt.Generate(secret, actor, "insumos-ledger", 5)
	require.NoError(t, err)

	got, err := jwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := jwt.Generate(secret, jwt.Actor{UserID: "u-1", Role: jwt.RoleAdmin}, "x", 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otro-secreto", tok)
	assert.Error(t, err)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, err := jwt.Generate(secret, jwt.Actor{UserID: "u-1", Role: jwt.RoleAdmin}, "x", -1)
	require.NoError(t, err)

	_, err = jwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := jwt.Generate("", jwt.Actor{UserID: "u-1"}, "x", 5)
	assert.Error(t, err)
}
