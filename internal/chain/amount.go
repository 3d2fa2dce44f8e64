package chain

import (
	"math/big"
	"strings"

	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// EtherDecimals is the number of decimal places between ether and wei.
const EtherDecimals = 18

// ParseDecimalAmount parses a decimal amount string to big.Int with the given decimal places.
// For example, "1.5" with 18 decimals returns 1500000000000000000.
// The conversion is exact: fractional digits beyond decimalPlaces are only
// accepted when they are zeros, anything else is rejected instead of rounded.
//
//nolint:gocognit,gocyclo // Decimal parsing requires sequential validation steps
func ParseDecimalAmount(amount string, decimalPlaces int, invalidAmountErr error) (*big.Int, error) {
	if amount == "" {
		return nil, invalidAmountErr
	}

	// Signs and exponents are not part of the accepted grammar
	if strings.ContainsAny(amount, "-+eE") {
		return nil, invalidAmountErr
	}

	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return nil, invalidAmountErr
	}

	intPart := parts[0]
	decPart := ""
	if len(parts) == 2 {
		decPart = parts[1]
		if intPart == "" && decPart == "" {
			return nil, invalidAmountErr
		}
	}

	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || !isDigits(decPart) {
		return nil, invalidAmountErr
	}

	intVal, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, invalidAmountErr
	}

	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalPlaces)), nil)
	result := new(big.Int).Mul(intVal, multiplier)

	if len(decPart) > decimalPlaces {
		if strings.Trim(decPart[decimalPlaces:], "0") != "" {
			return nil, invalidAmountErr
		}
		decPart = decPart[:decimalPlaces]
	}

	if decPart != "" {
		decPart += strings.Repeat("0", decimalPlaces-len(decPart))
		decVal, ok := new(big.Int).SetString(decPart, 10)
		if !ok {
			return nil, invalidAmountErr
		}
		result.Add(result, decVal)
	}

	return result, nil
}

// FormatDecimalAmount converts a big.Int to a human-readable string with the given decimal places.
// Trailing fractional zeros are removed, and so is the decimal point when nothing follows it.
// For example, 1500000000000000000 with 18 decimals returns "1.5" and 10^18 returns "1".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}
	if amount.Sign() < 0 {
		return "-" + FormatDecimalAmount(new(big.Int).Abs(amount), decimalPlaces)
	}

	str := amount.String()
	if decimalPlaces <= 0 {
		return str
	}

	// Pad with leading zeros if necessary
	if len(str) <= decimalPlaces {
		str = strings.Repeat("0", decimalPlaces-len(str)+1) + str
	}

	decimalPos := len(str) - decimalPlaces
	frac := strings.TrimRight(str[decimalPos:], "0")
	if frac == "" {
		return str[:decimalPos]
	}
	return str[:decimalPos] + "." + frac
}

// ParseEther converts a user-entered ether amount into wei.
func ParseEther(amount string) (*big.Int, error) {
	wei, err := ParseDecimalAmount(strings.TrimSpace(amount), EtherDecimals, cferr.ErrInvalidAmount)
	if err != nil {
		return nil, cferr.WithDetails(err, map[string]string{"amount": amount})
	}
	return wei, nil
}

// FormatEther converts wei into an ether decimal string for display.
func FormatEther(wei *big.Int) string {
	return FormatDecimalAmount(wei, EtherDecimals)
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
