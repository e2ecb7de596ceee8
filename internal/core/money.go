package core

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount in the smallest currency unit (whole Rupiah).
// All arithmetic stays in integers; formatting is for display only.
type Money int64

// NonNegative returns m, or zero when m is negative.
func (m Money) NonNegative() Money {
	if m < 0 {
		return 0
	}
	return m
}

// String implements fmt.Stringer using FormatIDR.
func (m Money) String() string {
	return FormatIDR(m)
}

// FormatIDR renders m the way the id-ID locale shows Rupiah amounts:
// "Rp 150.000", "-Rp 20.000". No decimals are shown.
func FormatIDR(m Money) string {
	// Printers keep per-call state, so one is created per call.
	p := message.NewPrinter(language.Indonesian)
	if m < 0 {
		return "-Rp " + p.Sprintf("%d", -int64(m))
	}
	return "Rp " + p.Sprintf("%d", int64(m))
}

// ParseAmount converts user input to Money.
//
// It accepts plain digits and id-ID grouping ("150.000", "150 000"), with an
// optional "Rp" prefix. Signs and decimal fractions are rejected.
//
// Examples:
//
//	ParseAmount("150000")     -> 150000, nil
//	ParseAmount("Rp 150.000") -> 150000, nil
//	ParseAmount("12,5")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = strings.TrimSpace(s[2:])
	}
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.NewReplacer(".", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return Money(v), nil
}
