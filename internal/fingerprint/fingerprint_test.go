package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSum_Deterministic checks that the same input always yields the same digest.
func TestSum_Deterministic(t *testing.T) {
	t.Parallel()

	data := []byte("proxies:\n  - name: a\n")

	require.True(t, Sum(data).Equal(Sum(data)))
	require.Len(t, Sum(data), Hash.Size())
	require.True(t, Sum(nil).Equal(Sum([]byte{})))
}

// TestSum_Distinguishes checks that different inputs yield different digests.
func TestSum_Distinguishes(t *testing.T) {
	t.Parallel()

	a := Sum([]byte("mode: rule"))
	b := Sum([]byte("mode: global"))

	require.False(t, a.Equal(b))
	require.NotEqual(t, a.String(), b.String())
}

// TestDigest_Strings verifies the hex renderings against a known SHA-256 value.
func TestDigest_Strings(t *testing.T) {
	t.Parallel()

	d := Sum([]byte("abc"))

	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d.String())
	require.Equal(t, "ba7816bf", d.Short())
	require.Empty(t, Digest(nil).Short())
}
