package secret

import (
	"bytes"
	"context"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKeyURI is a local base64key keeper for tests; no external KMS involved.
const testKeyURI = "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4="

func testProtector(t *testing.T) *KeeperProtector {
	t.Helper()
	protector, err := OpenKeeperProtector(context.Background(), testKeyURI)
	require.NoError(t, err)
	t.Cleanup(func() { _ = protector.Close() })
	return protector
}

func TestFromBytes(t *testing.T) {
	t.Run("wraps raw key material", func(t *testing.T) {
		raw := []byte("0123456789abcdef0123456789abcdef")
		sec, err := FromBytes(raw)
		require.NoError(t, err)
		assert.Equal(t, 32, sec.Len())
	})

	t.Run("wipes the input slice", func(t *testing.T) {
		raw := []byte("0123456789abcdef0123456789abcdef")
		_, err := FromBytes(raw)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, 32), raw)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := FromBytes(nil)
		assert.ErrorIs(t, err, ErrEmptyKey)
	})
}

func TestRandom(t *testing.T) {
	t.Run("generates the requested size", func(t *testing.T) {
		sec, err := Random(32)
		require.NoError(t, err)
		assert.Equal(t, 32, sec.Len())
	})

	t.Run("distinct secrets hold distinct bytes", func(t *testing.T) {
		ctx := context.Background()
		first, err := Random(32)
		require.NoError(t, err)
		second, err := Random(32)
		require.NoError(t, err)

		var firstBytes, secondBytes []byte
		require.NoError(t, first.WithBytes(ctx, func(key []byte) error {
			firstBytes = bytes.Clone(key)
			return nil
		}))
		require.NoError(t, second.WithBytes(ctx, func(key []byte) error {
			secondBytes = bytes.Clone(key)
			return nil
		}))
		assert.NotEqual(t, firstBytes, secondBytes)
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := Random(0)
		assert.ErrorIs(t, err, ErrEmptyKey)
	})
}

func TestSecret_WithBytes(t *testing.T) {
	ctx := context.Background()

	t.Run("hands fn the original key bytes", func(t *testing.T) {
		raw := bytes.Repeat([]byte{0xAB}, 32)
		sec, err := FromBytes(bytes.Clone(raw))
		require.NoError(t, err)

		err = sec.WithBytes(ctx, func(key []byte) error {
			assert.Equal(t, raw, key)
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("supports repeated access", func(t *testing.T) {
		sec, err := Random(32)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			err := sec.WithBytes(ctx, func(key []byte) error {
				assert.Len(t, key, 32)
				return nil
			})
			require.NoError(t, err)
		}
	})
}

func TestSecret_RenderProtected(t *testing.T) {
	ctx := context.Background()
	protector := testProtector(t)

	t.Run("renders a masterKey node without raw key bytes", func(t *testing.T) {
		raw := bytes.Repeat([]byte{0xCD}, 32)
		sec, err := FromBytes(bytes.Clone(raw))
		require.NoError(t, err)

		node, err := sec.RenderProtected(ctx, protector)
		require.NoError(t, err)
		assert.Equal(t, "masterKey", node.Tag)

		value := node.SelectElement("value")
		require.NotNil(t, value)
		assert.NotContains(t, value.Text(), string(raw))
	})

	t.Run("repeated renders are identical", func(t *testing.T) {
		sec, err := Random(32)
		require.NoError(t, err)

		first, err := sec.RenderProtected(ctx, protector)
		require.NoError(t, err)
		second, err := sec.RenderProtected(ctx, protector)
		require.NoError(t, err)

		assert.Equal(t, first.SelectElement("value").Text(), second.SelectElement("value").Text())
	})
}

func TestUnwrap(t *testing.T) {
	ctx := context.Background()
	protector := testProtector(t)

	t.Run("round trip restores the key bytes", func(t *testing.T) {
		raw := bytes.Repeat([]byte{0x42}, 32)
		sec, err := FromBytes(bytes.Clone(raw))
		require.NoError(t, err)

		node, err := sec.RenderProtected(ctx, protector)
		require.NoError(t, err)

		restored, err := Unwrap(protector, node)
		require.NoError(t, err)

		err = restored.WithBytes(ctx, func(key []byte) error {
			assert.Equal(t, raw, key)
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("unwrapped secret re-renders byte-for-byte", func(t *testing.T) {
		sec, err := Random(32)
		require.NoError(t, err)

		node, err := sec.RenderProtected(ctx, protector)
		require.NoError(t, err)
		original := node.SelectElement("value").Text()

		restored, err := Unwrap(protector, node)
		require.NoError(t, err)

		rendered, err := restored.RenderProtected(ctx, protector)
		require.NoError(t, err)
		assert.Equal(t, original, rendered.SelectElement("value").Text())
	})

	t.Run("nil node", func(t *testing.T) {
		_, err := Unwrap(protector, nil)
		assert.ErrorIs(t, err, ErrMalformedNode)
	})

	t.Run("missing value element", func(t *testing.T) {
		node := etree.NewElement("masterKey")
		_, err := Unwrap(protector, node)
		assert.ErrorIs(t, err, ErrMalformedNode)
	})

	t.Run("undecodable content", func(t *testing.T) {
		node := etree.NewElement("masterKey")
		node.CreateElement("value").SetText("not base64!!!")
		_, err := Unwrap(protector, node)
		assert.ErrorIs(t, err, ErrMalformedNode)
	})

	t.Run("structural check succeeds even when the blob cannot be unwrapped", func(t *testing.T) {
		node := etree.NewElement("masterKey")
		node.CreateElement("value").SetText("bm90IGEgcmVhbCBibG9i")

		sec, err := Unwrap(protector, node)
		require.NoError(t, err)

		err = sec.WithBytes(ctx, func(key []byte) error { return nil })
		assert.ErrorIs(t, err, ErrCryptographic)
	})
}

func TestSecret_Rewrap(t *testing.T) {
	ctx := context.Background()
	protector := testProtector(t)

	t.Run("produces a fresh secret with the same key bytes", func(t *testing.T) {
		raw := bytes.Repeat([]byte{0x17}, 32)
		sec, err := FromBytes(bytes.Clone(raw))
		require.NoError(t, err)

		fresh, err := sec.Rewrap(ctx)
		require.NoError(t, err)

		err = fresh.WithBytes(ctx, func(key []byte) error {
			assert.Equal(t, raw, key)
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("rewrapped secret renders under a new protector", func(t *testing.T) {
		otherProtector, err := OpenKeeperProtector(
			context.Background(),
			"base64key://waEV2-isnVZzDAEZWgOFO6PjPa5dabmW1cdDUmTbem0=",
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = otherProtector.Close() })

		sec, err := Random(32)
		require.NoError(t, err)
		node, err := sec.RenderProtected(ctx, protector)
		require.NoError(t, err)

		restored, err := Unwrap(protector, node)
		require.NoError(t, err)
		fresh, err := restored.Rewrap(ctx)
		require.NoError(t, err)

		rendered, err := fresh.RenderProtected(ctx, otherProtector)
		require.NoError(t, err)
		assert.NotEqual(t, node.SelectElement("value").Text(), rendered.SelectElement("value").Text())

		restoredAgain, err := Unwrap(otherProtector, rendered)
		require.NoError(t, err)
		err = restoredAgain.WithBytes(ctx, func(key []byte) error {
			assert.Len(t, key, 32)
			return nil
		})
		assert.NoError(t, err)
	})
}

func TestKeeperProtector(t *testing.T) {
	ctx := context.Background()
	protector := testProtector(t)

	t.Run("protect and unprotect round trip", func(t *testing.T) {
		plaintext := []byte("key material")
		blob, err := protector.Protect(ctx, plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, blob)

		restored, err := protector.Unprotect(ctx, blob)
		require.NoError(t, err)
		assert.Equal(t, plaintext, restored)
	})

	t.Run("unprotect failure carries no key material", func(t *testing.T) {
		_, err := protector.Unprotect(ctx, []byte("garbage"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCryptographic)
		assert.NotContains(t, err.Error(), "garbage")
	})

	t.Run("invalid key URI", func(t *testing.T) {
		_, err := OpenKeeperProtector(ctx, "bogus://nope")
		assert.Error(t, err)
	})
}
