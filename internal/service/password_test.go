package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordPolicyCheck(t *testing.T) {
	policy := NewPasswordPolicy(8)

	assert.NoError(t, policy.Check("Sup3rSecret"))
	assert.Error(t, policy.Check("Sh0rt"))
	assert.Error(t, policy.Check("alllowercase1"))
	assert.Error(t, policy.Check("ALLUPPERCASE1"))
	assert.Error(t, policy.Check("NoDigitsHere"))
}

func TestPasswordPolicyHashVerifies(t *testing.T) {
	policy := NewPasswordPolicy(8)
	hash, err := policy.Hash("Sup3rSecret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("Sup3rSecret")))
}
