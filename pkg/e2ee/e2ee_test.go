package e2ee_test

import (
	"encoding/base64"
	"testing"

	"github.com/hilthontt/cipherroom/pkg/e2ee"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	req := require.New(t)

	key := e2ee.DeriveKey("K7P2QX9M")
	req.Len(key, e2ee.KeySize)
	req.Equal(key, e2ee.DeriveKey("K7P2QX9M"))
	req.NotEqual(key, e2ee.DeriveKey("K7P2QX9N"))
}

func TestSealer(t *testing.T) {
	sealer, err := e2ee.ForRoom("K7P2QX9M")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		req := require.New(t)

		env, err := sealer.Seal("meet at noon")
		req.NoError(err)
		req.Equal(e2ee.Algorithm, env.Alg)

		iv, err := base64.StdEncoding.DecodeString(env.IV)
		req.NoError(err)
		req.Len(iv, e2ee.IVSize)

		plaintext, err := sealer.Open(env)
		req.NoError(err)
		req.Equal("meet at noon", plaintext)
	})

	t.Run("fresh iv per message", func(t *testing.T) {
		req := require.New(t)

		a, err := sealer.Seal("same")
		req.NoError(err)
		b, err := sealer.Seal("same")
		req.NoError(err)

		req.NotEqual(a.IV, b.IV)
		req.NotEqual(a.Ciphertext, b.Ciphertext)
	})

	t.Run("wrong code cannot decrypt", func(t *testing.T) {
		req := require.New(t)

		env, err := sealer.Seal("secret")
		req.NoError(err)

		other, err := e2ee.ForRoom("AAAAAAAA")
		req.NoError(err)

		_, err = other.Open(env)
		req.ErrorIs(err, e2ee.ErrDecryptionFailed)
	})

	t.Run("tampering is detected", func(t *testing.T) {
		req := require.New(t)

		env, err := sealer.Seal("secret")
		req.NoError(err)

		raw, err := base64.StdEncoding.DecodeString(env.Ciphertext)
		req.NoError(err)
		raw[0] ^= 0xff
		env.Ciphertext = base64.StdEncoding.EncodeToString(raw)

		_, err = sealer.Open(env)
		req.ErrorIs(err, e2ee.ErrDecryptionFailed)
	})

	t.Run("malformed envelopes", func(t *testing.T) {
		req := require.New(t)

		_, err := sealer.Open(e2ee.Envelope{Ciphertext: "AAAA", IV: "AAAAAAAAAAAAAAAA", Alg: "ROT13"})
		req.ErrorIs(err, e2ee.ErrUnsupportedAlgorithm)

		_, err = sealer.Open(e2ee.Envelope{Ciphertext: "AAAA", IV: "AAAA", Alg: e2ee.Algorithm})
		req.ErrorIs(err, e2ee.ErrInvalidEnvelope)

		_, err = sealer.Open(e2ee.Envelope{Ciphertext: "%%%", IV: "AAAAAAAAAAAAAAAA", Alg: e2ee.Algorithm})
		req.ErrorIs(err, e2ee.ErrInvalidEnvelope)
	})
}

func TestNewSealer_KeySize(t *testing.T) {
	_, err := e2ee.NewSealer(make([]byte, 16))
	require.Error(t, err)
}
