package bolt11

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

const (
	testKeyHex  = "e126f68f7eafcc8b74f54d269fe206be715000f94dac067d1c04a8ca3b2db734"
	testHashHex = "0001020304050607080900010203040506070809000102030405060708090102"
)

func testKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	b, err := hex.DecodeString(testKeyHex)
	require.NoError(t, err)
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	key := testKey(t)
	ts := time.Unix(1_700_000_000, 0)

	req, err := Encode(&Invoice{
		Network:     NetworkMainnet,
		AmountMsat:  250_000_000,
		Timestamp:   ts,
		PaymentHash: testHashHex,
		Description: "1 cup coffee",
		Expiry:      time.Minute,
	}, key)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(req, "lnbc2500u1"), "unexpected hrp in %s", req)

	inv, err := Decode(req)
	require.NoError(t, err)
	require.Equal(t, NetworkMainnet, inv.Network)
	require.Equal(t, uint64(250_000_000), inv.AmountMsat)
	require.Equal(t, ts.Unix(), inv.Timestamp.Unix())
	require.Equal(t, testHashHex, inv.PaymentHash)
	require.Equal(t, "1 cup coffee", inv.Description)
	require.Equal(t, time.Minute, inv.Expiry)
	require.Equal(t, uint64(DefaultMinFinalCLTVExpiry), inv.MinFinalCLTVExpiry)
	require.Equal(t, hex.EncodeToString(key.PubKey().SerializeCompressed()), inv.Payee)

	hash, ok := inv.Section(SectionPaymentHash)
	require.True(t, ok)
	require.Equal(t, testHashHex, hash)

	exp, ok := inv.Section(SectionExpiry)
	require.True(t, ok)
	require.Equal(t, "60", exp)
	require.Equal(t, ts.Add(time.Minute).Unix(), inv.ExpiresAt().Unix())
}

func TestEncodeDecode_NoAmountTestnet(t *testing.T) {
	req, err := Encode(&Invoice{
		Network:     NetworkTestnet,
		PaymentHash: testHashHex,
		Timestamp:   time.Unix(1_600_000_000, 0),
	}, testKey(t))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(req, "lntb1"))

	inv, err := Decode(req)
	require.NoError(t, err)
	require.Equal(t, uint64(0), inv.AmountMsat)
	_, ok := inv.Section(SectionAmount)
	require.False(t, ok)
	require.Equal(t, DefaultExpiry, inv.Expiry)
}

func TestEncodeDecode_RegtestPrefersLongestNetwork(t *testing.T) {
	req, err := Encode(&Invoice{Network: NetworkRegtest, AmountMsat: 1000, PaymentHash: testHashHex}, testKey(t))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(req, "lnbcrt10n1"), req)

	inv, err := Decode(req)
	require.NoError(t, err)
	require.Equal(t, NetworkRegtest, inv.Network)
	require.Equal(t, uint64(1000), inv.AmountMsat)
}

func TestDecode_LightningURIPrefixAndUppercase(t *testing.T) {
	req, err := Encode(&Invoice{PaymentHash: testHashHex}, testKey(t))
	require.NoError(t, err)

	inv, err := Decode("lightning:" + req)
	require.NoError(t, err)
	require.Equal(t, testHashHex, inv.PaymentHash)

	inv, err = Decode(strings.ToUpper(req))
	require.NoError(t, err)
	require.Equal(t, testHashHex, inv.PaymentHash)
}

func TestDecode_Rejects(t *testing.T) {
	good, err := Encode(&Invoice{PaymentHash: testHashHex, Description: "x"}, testKey(t))
	require.NoError(t, err)

	// flip a data character well inside the payload; checksum must fail
	mid := len(good) / 2
	repl := byte('q')
	if good[mid] == 'q' {
		repl = 'p'
	}
	tampered := good[:mid] + string(repl) + good[mid+1:]

	tests := []struct {
		name    string
		invoice string
	}{
		{name: "empty", invoice: ""},
		{name: "not bech32", invoice: "hello world"},
		{name: "bad checksum", invoice: tampered},
		{name: "mixed case", invoice: good[:10] + strings.ToUpper(good[10:])},
		{name: "wrong prefix", invoice: "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.invoice)
			require.Error(t, err)
		})
	}
}

func TestEncode_RequiresPaymentHash(t *testing.T) {
	_, err := Encode(&Invoice{Description: "x"}, testKey(t))
	require.ErrorIs(t, err, ErrMissingPaymentHash)

	_, err = Encode(&Invoice{PaymentHash: "zz"}, testKey(t))
	require.ErrorIs(t, err, ErrInvalidInvoice)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "1", want: 100_000_000_000},
		{in: "2500u", want: 250_000_000},
		{in: "20m", want: 2_000_000_000},
		{in: "10n", want: 1000},
		{in: "10p", want: 1},
		{in: "11p", wantErr: true},
		{in: "u", wantErr: true},
		{in: "5x", wantErr: true},
		{in: "999999999999999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, got, mustParse(t, formatAmount(got)))
		})
	}
}

func mustParse(t *testing.T, s string) uint64 {
	t.Helper()
	v, err := parseAmount(s)
	require.NoError(t, err)
	return v
}

func TestGroups(t *testing.T) {
	require.Equal(t, uint64(3600), readUint(minimalUint(3600)))
	require.Empty(t, minimalUint(0))
	require.Len(t, writeUint(1_700_000_000, timestampGroups), timestampGroups)
}
