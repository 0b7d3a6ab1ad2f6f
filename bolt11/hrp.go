package bolt11

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// networks are ordered so that longer prefixes match first.
var networks = []string{NetworkRegtest, NetworkMainnet, NetworkSignet, NetworkTestnet, NetworkSimnet}

var multipliers = map[byte]uint64{
	'm': 100_000_000,
	'u': 100_000,
	'n': 100,
}

const msatPerBTC = 100_000_000_000

// parseHRP splits the human readable part into network and msat amount.
func parseHRP(hrp string) (network string, amountMsat uint64, err error) {
	if !strings.HasPrefix(hrp, "ln") {
		return "", 0, fmt.Errorf("%w: prefix must be \"ln\"", ErrInvalidInvoice)
	}
	rest := hrp[2:]
	for _, n := range networks {
		if strings.HasPrefix(rest, n) {
			network, rest = n, rest[len(n):]
			break
		}
	}
	if network == "" {
		return "", 0, fmt.Errorf("%w: unknown network in %q", ErrInvalidInvoice, hrp)
	}
	if rest == "" {
		return network, 0, nil
	}
	amountMsat, err = parseAmount(rest)
	if err != nil {
		return "", 0, err
	}
	return network, amountMsat, nil
}

func parseAmount(s string) (uint64, error) {
	unit := s[len(s)-1]
	digits := s
	if unit < '0' || unit > '9' {
		digits = s[:len(s)-1]
	} else {
		unit = 0
	}
	if digits == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidInvoice)
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %v", ErrInvalidInvoice, s, err)
	}

	var mult uint64
	switch unit {
	case 0:
		mult = msatPerBTC
	case 'p':
		if n%10 != 0 {
			return 0, fmt.Errorf("%w: pico amount %q is not a whole millisatoshi", ErrInvalidInvoice, s)
		}
		return n / 10, nil
	default:
		m, ok := multipliers[unit]
		if !ok {
			return 0, fmt.Errorf("%w: unknown multiplier %q", ErrInvalidInvoice, unit)
		}
		mult = m
	}
	if n > math.MaxUint64/mult {
		return 0, fmt.Errorf("%w: amount %q overflows", ErrInvalidInvoice, s)
	}
	return n * mult, nil
}

// formatAmount renders msat with the largest multiplier that divides it.
func formatAmount(msat uint64) string {
	switch {
	case msat == 0:
		return ""
	case msat%msatPerBTC == 0:
		return strconv.FormatUint(msat/msatPerBTC, 10)
	case msat%multipliers['m'] == 0:
		return strconv.FormatUint(msat/multipliers['m'], 10) + "m"
	case msat%multipliers['u'] == 0:
		return strconv.FormatUint(msat/multipliers['u'], 10) + "u"
	case msat%multipliers['n'] == 0:
		return strconv.FormatUint(msat/multipliers['n'], 10) + "n"
	default:
		return strconv.FormatUint(msat*10, 10) + "p"
	}
}
