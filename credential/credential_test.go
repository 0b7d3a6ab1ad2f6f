package credential

import (
	"bytes"
	"encoding/hex"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/ggoodman/l402-go/bolt11"
)

// newPreimage returns a Lightning style preimage: 32 raw bytes, hex encoded,
// with the payment hash a node would put in its invoice.
func newPreimage(fill byte) (preimage string, paymentHash string) {
	raw := bytes.Repeat([]byte{fill}, 32)
	return hex.EncodeToString(raw), HashHex(raw)
}

func mustNew(t *testing.T, hash string) Credential {
	t.Helper()
	c, err := New(hash)
	require.NoError(t, err)
	return c
}

func mintInvoice(t *testing.T, paymentHash string) string {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	inv, err := bolt11.Encode(&bolt11.Invoice{PaymentHash: paymentHash, AmountMsat: 10_000, Description: "test"}, key)
	require.NoError(t, err)
	return inv
}

func TestNew_RequiresPaymentHash(t *testing.T) {
	_, err := New("")
	require.ErrorIs(t, err, ErrMissingField)
}

func TestFromInvoice(t *testing.T) {
	_, hash := newPreimage(7)
	inv := mintInvoice(t, hash)

	c, err := FromInvoice(inv)
	require.NoError(t, err)
	require.Equal(t, hash, c.PaymentHash())

	pr, ok := c.PaymentRequest()
	require.True(t, ok)
	require.Equal(t, inv, pr)

	_, ok = c.Preimage()
	require.False(t, ok, "fresh credential must not carry a preimage")
}

func TestFromInvoice_Undecodable(t *testing.T) {
	for _, in := range []string{"", "lnbc1garbage", "not an invoice"} {
		_, err := FromInvoice(in)
		require.ErrorIs(t, err, ErrInvoiceDecoding, "FromInvoice(%q)", in)
	}
}

func TestIsPaid_HashesPreimageString(t *testing.T) {
	for _, p := range []string{"hello", "s3cr3t-preimage", "ÿ unicode ✓", "abc"} {
		t.Run(p, func(t *testing.T) {
			c := mustNew(t, HashHex([]byte(p)))
			require.False(t, c.IsPaid(), "no preimage")
			require.True(t, c.WithPreimage(p).IsPaid())

			// one bit flipped in the first byte of the string form
			flipped := []byte(p)
			flipped[0] ^= 0x01
			require.False(t, c.WithPreimage(string(flipped)).IsPaid())
		})
	}
}

func TestIsPaid_HexPreimageStringForm(t *testing.T) {
	// a hex preimage whose string form (not its decoded bytes) was hashed
	preimage, _ := newPreimage(0x5a)
	c := mustNew(t, HashHex([]byte(preimage)))
	require.True(t, c.WithPreimage(preimage).IsPaid())
}

func TestIsPaid_LightningRawPreimage(t *testing.T) {
	preimage, hash := newPreimage(42)
	c := mustNew(t, hash)

	require.False(t, c.IsPaid())
	require.True(t, c.WithPreimage(preimage).IsPaid())

	raw, err := hex.DecodeString(preimage)
	require.NoError(t, err)
	raw[0] ^= 0x01
	require.False(t, c.WithPreimage(hex.EncodeToString(raw)).IsPaid())

	require.False(t, c.WithPreimage("not-hex").IsPaid())
	require.False(t, (Credential{}).WithPreimage(preimage).IsPaid(), "no payment hash")
}

func TestIsPaid_CaseSensitive(t *testing.T) {
	preimage, hash := newPreimage(0xab)
	upper := mustNew(t, string(bytes.ToUpper([]byte(hash))))
	require.False(t, upper.WithPreimage(preimage).IsPaid())

	strHash := HashHex([]byte("hello"))
	require.False(t, mustNew(t, string(bytes.ToUpper([]byte(strHash)))).WithPreimage("hello").IsPaid())
}

func TestIsExpired_Direction(t *testing.T) {
	c := mustNew(t, "ab")
	now := time.Now()

	require.True(t, c.WithExpiryAt(now.Add(-time.Second)).IsExpired(), "expiresAt = now-1")
	require.False(t, c.WithExpiryAt(now.Add(time.Hour)).IsExpired(), "expiresAt = now+3600")
	require.True(t, c.IsExpired(), "credential without expiry is reported expired")
}

func TestIsExpiredAt_Boundary(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	c := mustNew(t, "ab").WithExpiryAt(at)

	require.False(t, c.IsExpiredAt(at.Add(-time.Second)))
	require.True(t, c.IsExpiredAt(at))
}

func TestWithExpiryAt_Epoch(t *testing.T) {
	epoch := time.Unix(0, 0)
	c := mustNew(t, "ab").WithExpiryAt(epoch)

	exp, ok := c.Expiry()
	require.True(t, ok, "an expiry at the epoch is still an expiry")
	require.Equal(t, int64(0), exp.Unix())
	require.False(t, c.IsExpiredAt(epoch.Add(-time.Second)))
	require.True(t, c.IsExpiredAt(epoch))
}

func TestWithExpiry(t *testing.T) {
	c := mustNew(t, "ab")
	before := time.Now().Unix()

	exp, ok := c.WithExpiry(time.Hour).Expiry()
	require.True(t, ok)
	got := exp.Unix() - before
	require.GreaterOrEqual(t, got, int64(3600))
	require.LessOrEqual(t, got, int64(3601))

	neg, ok := c.WithExpiry(-time.Hour).Expiry()
	require.True(t, ok)
	require.GreaterOrEqual(t, neg.Unix(), before, "negative validity clamps to now")

	_, ok = c.Expiry()
	require.False(t, ok, "WithExpiry must not mutate the receiver")
}

func TestBodyBinding(t *testing.T) {
	c := mustNew(t, "ab")
	bodies := [][]byte{nil, []byte(""), []byte(`{"a":1}`), bytes.Repeat([]byte{0xff}, 4096)}

	for _, b := range bodies {
		bound := c.BindBody(b)
		require.True(t, bound.IsBodyValid(b), "bound body %q", b)
		require.False(t, bound.IsBodyValid(append(append([]byte(nil), b...), 'x')), "altered body %q", b)
	}

	require.True(t, c.IsBodyValid([]byte("anything")), "unbound credential accepts any body")

	rebound := c.BindBody([]byte("a")).BindBody([]byte("b"))
	require.False(t, rebound.IsBodyValid([]byte("a")))
	require.True(t, rebound.IsBodyValid([]byte("b")))
}
