package domain

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid_amount")

// ParseAmount converts a positive decimal string with at most two fraction
// digits into minor units.
func ParseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "-") || strings.HasPrefix(raw, "+") {
		return 0, ErrInvalidAmount
	}

	whole := raw
	frac := ""
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		whole = raw[:idx]
		frac = raw[idx+1:]
	}
	if whole == "" || len(frac) > 2 {
		return 0, ErrInvalidAmount
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := int64(0)
	if frac != "00" {
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
	}

	amount := units*MinorUnitsPerUnit + cents
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// FormatAmount renders minor units back to the canonical decimal string.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return sign + strconv.FormatInt(minor/MinorUnitsPerUnit, 10) + "." +
		leftPad(strconv.FormatInt(minor%MinorUnitsPerUnit, 10))
}

func leftPad(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
