package line

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSignatureRoundTrip(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"destination":"U1","events":[]}`)

	sig := Sign(secret, body)
	require.True(t, ValidateSignature(secret, body, sig))
}

func TestValidateSignatureRejectsMutations(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"destination":"U1","events":[]}`)
	sig := Sign(secret, body)

	mutated := append([]byte(nil), body...)
	mutated[0] ^= 0x01
	require.False(t, ValidateSignature(secret, mutated, sig))

	require.False(t, ValidateSignature(secret, body, Sign("other-secret", body)))
	require.False(t, ValidateSignature("other-secret", body, sig))
}

func TestValidateSignatureMissingInputs(t *testing.T) {
	body := []byte("payload")
	sig := Sign("secret", body)

	require.False(t, ValidateSignature("", body, sig))
	require.False(t, ValidateSignature("secret", nil, sig))
	require.False(t, ValidateSignature("secret", body, ""))
	require.False(t, ValidateSignature("secret", body, "not-base64!!!"))
}
