package bolt11

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Tagged field types.
const (
	tagPaymentHash        = 1
	tagRouteHint          = 3
	tagFeatureBits        = 5
	tagExpiry             = 6
	tagFallbackAddress    = 9
	tagDescription        = 13
	tagPaymentSecret      = 16
	tagPayee              = 19
	tagDescriptionHash    = 23
	tagMinFinalCLTVExpiry = 24
	tagMetadata           = 27
)

const (
	timestampGroups = 7
	signatureGroups = 104
	hashGroups      = 52
	pubkeyGroups    = 53
)

// Decode parses and validates a bolt11 payment request. A "lightning:" URI
// prefix is tolerated.
func Decode(invoice string) (*Invoice, error) {
	s := strings.TrimSpace(invoice)
	if len(s) > 10 && strings.EqualFold(s[:10], "lightning:") {
		s = s[10:]
	}
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInvoice, err)
	}
	network, amount, err := parseHRP(hrp)
	if err != nil {
		return nil, err
	}
	if len(data) < timestampGroups+signatureGroups {
		return nil, fmt.Errorf("%w: data part too short", ErrInvalidInvoice)
	}

	body := data[:len(data)-signatureGroups]
	sigGroups := data[len(data)-signatureGroups:]

	inv := &Invoice{
		Network:            network,
		AmountMsat:         amount,
		Timestamp:          time.Unix(int64(readUint(body[:timestampGroups])), 0),
		Expiry:             DefaultExpiry,
		MinFinalCLTVExpiry: DefaultMinFinalCLTVExpiry,
	}
	inv.Sections = append(inv.Sections, Section{Name: SectionCoinNetwork, Value: network})
	if amount > 0 {
		inv.Sections = append(inv.Sections, Section{Name: SectionAmount, Value: strconv.FormatUint(amount, 10)})
	}
	inv.Sections = append(inv.Sections, Section{Name: SectionTimestamp, Value: strconv.FormatInt(inv.Timestamp.Unix(), 10)})

	var explicitPayee string
	for i := timestampGroups; i < len(body); {
		if i+3 > len(body) {
			return nil, fmt.Errorf("%w: truncated tagged field header", ErrInvalidInvoice)
		}
		tag := body[i]
		n := int(readUint(body[i+1 : i+3]))
		i += 3
		if i+n > len(body) {
			return nil, fmt.Errorf("%w: tagged field %d overruns data", ErrInvalidInvoice, tag)
		}
		field := body[i : i+n]
		i += n

		sec, err := decodeField(inv, tag, field)
		if err != nil {
			return nil, err
		}
		if sec == nil {
			continue
		}
		if sec.Name == SectionPayee {
			explicitPayee = sec.Value
		}
		inv.Sections = append(inv.Sections, *sec)
	}

	if inv.PaymentHash == "" {
		return nil, ErrMissingPaymentHash
	}

	sig, err := bech32.ConvertBits(sigGroups, 5, 8, false)
	if err != nil || len(sig) != 65 {
		return nil, fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
	}
	payee, err := recoverPayee(hrp, body, sig)
	if err != nil {
		return nil, err
	}
	if explicitPayee != "" && explicitPayee != payee {
		return nil, fmt.Errorf("%w: signature does not match payee field", ErrInvalidSignature)
	}
	inv.Payee = payee
	if explicitPayee == "" {
		inv.Sections = append(inv.Sections, Section{Name: SectionPayee, Value: payee})
	}
	inv.Sections = append(inv.Sections, Section{Name: SectionSignature, Value: hex.EncodeToString(sig[:64])})
	return inv, nil
}

// decodeField applies one tagged field to inv. Fields with a length the
// reader must not interpret are skipped by returning nil.
func decodeField(inv *Invoice, tag byte, field []byte) (*Section, error) {
	switch tag {
	case tagPaymentHash, tagPaymentSecret, tagDescriptionHash:
		if len(field) != hashGroups {
			return nil, nil
		}
		b, err := bech32.ConvertBits(field, 5, 8, false)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %v", ErrInvalidInvoice, tag, err)
		}
		v := hex.EncodeToString(b)
		switch tag {
		case tagPaymentHash:
			inv.PaymentHash = v
			return &Section{Name: SectionPaymentHash, Value: v}, nil
		case tagPaymentSecret:
			inv.PaymentSecret = v
			return &Section{Name: SectionPaymentSecret, Value: v}, nil
		default:
			inv.DescriptionHash = v
			return &Section{Name: SectionDescriptionHash, Value: v}, nil
		}

	case tagPayee:
		if len(field) != pubkeyGroups {
			return nil, nil
		}
		b, err := bech32.ConvertBits(field, 5, 8, false)
		if err != nil {
			return nil, fmt.Errorf("%w: payee: %v", ErrInvalidInvoice, err)
		}
		return &Section{Name: SectionPayee, Value: hex.EncodeToString(b)}, nil

	case tagDescription:
		b, err := bech32.ConvertBits(field, 5, 8, false)
		if err != nil {
			return nil, fmt.Errorf("%w: description: %v", ErrInvalidInvoice, err)
		}
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("%w: description is not valid utf-8", ErrInvalidInvoice)
		}
		inv.Description = string(b)
		return &Section{Name: SectionDescription, Value: inv.Description}, nil

	case tagExpiry:
		v := readUint(field)
		inv.Expiry = time.Duration(v) * time.Second
		return &Section{Name: SectionExpiry, Value: strconv.FormatUint(v, 10)}, nil

	case tagMinFinalCLTVExpiry:
		inv.MinFinalCLTVExpiry = readUint(field)
		return &Section{Name: SectionMinFinalCLTVExpiry, Value: strconv.FormatUint(inv.MinFinalCLTVExpiry, 10)}, nil

	case tagFallbackAddress:
		return rawSection(SectionFallbackAddress, field)
	case tagRouteHint:
		return rawSection(SectionRouteHint, field)
	case tagFeatureBits:
		return rawSection(SectionFeatureBits, field)
	case tagMetadata:
		return rawSection(SectionMetadata, field)
	default:
		return rawSection("unknown_"+strconv.Itoa(int(tag)), field)
	}
}

func rawSection(name string, field []byte) (*Section, error) {
	b, err := bech32.ConvertBits(field, 5, 8, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInvoice, name, err)
	}
	return &Section{Name: name, Value: hex.EncodeToString(b)}, nil
}

// signingHash is sha256(hrp || data) with data regrouped into padded bytes.
func signingHash(hrp string, body []byte) ([]byte, error) {
	b, err := bech32.ConvertBits(body, 5, 8, true)
	if err != nil {
		return nil, err
	}
	return chainhash.HashB(append([]byte(hrp), b...)), nil
}

// recoverPayee recovers the compressed public key from a 64-byte r||s
// signature followed by a one byte recovery id.
func recoverPayee(hrp string, body, sig []byte) (string, error) {
	recID := sig[64]
	if recID > 3 {
		return "", fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, recID)
	}
	hash, err := signingHash(hrp, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInvoice, err)
	}
	compact := make([]byte, 65)
	compact[0] = 27 + 4 + recID
	copy(compact[1:], sig[:64])
	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return hex.EncodeToString(pub.SerializeCompressed()), nil
}
