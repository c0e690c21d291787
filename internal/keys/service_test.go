package keys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	svc := NewService(nil)
	priv, pub, err := svc.GenerateKeyPair()
	require.NoError(t, err)
	assert.True(t, strings.Contains(priv, "PRIVATE KEY"))
	assert.True(t, strings.Contains(pub, "PUBLIC KEY"))

	for _, msg := range [][]byte{
		[]byte("Acute Bronchitis|Amoxicillin 500mg"),
		[]byte("|"),
		{},
	} {
		sig, err := svc.Sign(priv, msg)
		require.NoError(t, err)
		assert.True(t, svc.Verify(pub, msg, sig))
	}
}

func TestSignatureIsProbabilistic(t *testing.T) {
	svc := NewService(nil)
	priv, pub, err := svc.GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("same message")
	first, err := svc.Sign(priv, msg)
	require.NoError(t, err)
	second, err := svc.Sign(priv, msg)
	require.NoError(t, err)

	// PSS salts each signature; both verify but the bytes differ.
	assert.NotEqual(t, first, second)
	assert.True(t, svc.Verify(pub, msg, first))
	assert.True(t, svc.Verify(pub, msg, second))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	svc := NewService(nil)
	priv, pub, err := svc.GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("diagnosis|prescription")
	sig, err := svc.Sign(priv, msg)
	require.NoError(t, err)

	tampered := make([]byte, len(msg))
	copy(tampered, msg)
	tampered[0] ^= 0x01

	assert.False(t, svc.Verify(pub, tampered, sig))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	svc := NewService(nil)
	priv, _, err := svc.GenerateKeyPair()
	require.NoError(t, err)
	_, otherPub, err := svc.GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("diagnosis|prescription")
	sig, err := svc.Sign(priv, msg)
	require.NoError(t, err)

	assert.False(t, svc.Verify(otherPub, msg, sig))
}

func TestVerifyNeverErrorsOnGarbage(t *testing.T) {
	svc := NewService(nil)
	_, pub, err := svc.GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("message")

	assert.False(t, svc.Verify(pub, msg, "not base64 at all!!!"))
	assert.False(t, svc.Verify(pub, msg, ""))
	assert.False(t, svc.Verify("not a pem key", msg, "c2ln"))
	assert.False(t, svc.Verify("", msg, "c2ln"))
}

func TestSignRejectsMalformedKey(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Sign("garbage", []byte("msg"))
	assert.Error(t, err)
}
