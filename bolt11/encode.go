package bolt11

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

const maxFieldGroups = 1<<10 - 1

// Encode serializes inv and signs it with key. Network defaults to mainnet
// and Timestamp to now. PaymentHash is required. Payee and Sections are
// ignored; the payee is implied by the signing key.
func Encode(inv *Invoice, key *btcec.PrivateKey) (string, error) {
	if inv.PaymentHash == "" {
		return "", ErrMissingPaymentHash
	}
	network := inv.Network
	if network == "" {
		network = NetworkMainnet
	}
	ts := inv.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if ts.Unix() < 0 || ts.Unix() >= 1<<35 {
		return "", fmt.Errorf("%w: timestamp out of range", ErrInvalidInvoice)
	}

	hrp := "ln" + network + formatAmount(inv.AmountMsat)
	data := writeUint(uint64(ts.Unix()), timestampGroups)

	var err error
	if data, err = appendHexField(data, tagPaymentHash, inv.PaymentHash, 32); err != nil {
		return "", err
	}
	if inv.PaymentSecret != "" {
		if data, err = appendHexField(data, tagPaymentSecret, inv.PaymentSecret, 32); err != nil {
			return "", err
		}
	}
	if inv.DescriptionHash != "" {
		if data, err = appendHexField(data, tagDescriptionHash, inv.DescriptionHash, 32); err != nil {
			return "", err
		}
	} else {
		if data, err = appendBytesField(data, tagDescription, []byte(inv.Description)); err != nil {
			return "", err
		}
	}
	if inv.Expiry > 0 && inv.Expiry != DefaultExpiry {
		data = appendField(data, tagExpiry, minimalUint(uint64(inv.Expiry/time.Second)))
	}
	if inv.MinFinalCLTVExpiry > 0 && inv.MinFinalCLTVExpiry != DefaultMinFinalCLTVExpiry {
		data = appendField(data, tagMinFinalCLTVExpiry, minimalUint(inv.MinFinalCLTVExpiry))
	}

	hash, err := signingHash(hrp, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInvoice, err)
	}
	compact := ecdsa.SignCompact(key, hash, true)
	// compact is header||r||s; bolt11 wants r||s||recovery id.
	sig := make([]byte, 65)
	copy(sig, compact[1:])
	sig[64] = compact[0] - 27 - 4
	sigGroups, err := bech32.ConvertBits(sig, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out, err := bech32.Encode(hrp, append(data, sigGroups...))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInvoice, err)
	}
	return out, nil
}

func appendField(data []byte, tag byte, groups []byte) []byte {
	data = append(data, tag)
	data = append(data, writeUint(uint64(len(groups)), 2)...)
	return append(data, groups...)
}

func appendBytesField(data []byte, tag byte, b []byte) ([]byte, error) {
	groups, err := bech32.ConvertBits(b, 8, 5, true)
	if err != nil {
		return nil, fmt.Errorf("%w: field %d: %v", ErrInvalidInvoice, tag, err)
	}
	if len(groups) > maxFieldGroups {
		return nil, fmt.Errorf("%w: field %d too long", ErrInvalidInvoice, tag)
	}
	return appendField(data, tag, groups), nil
}

func appendHexField(data []byte, tag byte, h string, size int) ([]byte, error) {
	b, err := hex.DecodeString(h)
	if err != nil || len(b) != size {
		return nil, fmt.Errorf("%w: field %d must be %d hex-encoded bytes", ErrInvalidInvoice, tag, size)
	}
	return appendBytesField(data, tag, b)
}
