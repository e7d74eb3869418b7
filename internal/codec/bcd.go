package codec

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a field value lies outside the range
// the time code can carry.
var ErrInvalidArgument = errors.New("invalid argument")

// BCD field limits
const (
	BCD_BITS_PER_DIGIT = 4   // Weights 1, 2, 4, 8 within one decimal digit
	PARITY_BITS        = 8   // Two decimal digits
	PARITY_LIMIT       = 100 // Parity is only defined for two-digit values
)

// BCDDigit returns bit i of the binary-coded-decimal form of n.
//
// The decimal digit is selected by i/4 (0 = ones, 1 = tens, 2 = hundreds)
// and the bit within it by i%4 (weights 1, 2, 4, 8). Bit 8 of a day-of-year
// value is therefore the 100d weight and bit 9 the 200d weight.
func BCDDigit(n uint32, i uint8) uint8 {
	digit := n
	for k := i / BCD_BITS_PER_DIGIT; k > 0; k-- {
		digit /= 10
	}
	digit %= 10

	if digit&(1<<(i%BCD_BITS_PER_DIGIT)) == 0 {
		return 0
	}
	return 1
}

// Parity returns the even parity bit over the eight BCD bits of a two-digit
// value. Hours (PA1) and minutes (PA2) both fit.
func Parity(n uint32) (uint8, error) {
	if n >= PARITY_LIMIT {
		return 0, fmt.Errorf("parity of %d: value has more than two decimal digits: %w", n, ErrInvalidArgument)
	}

	var sum uint8
	for i := uint8(0); i < PARITY_BITS; i++ {
		sum += BCDDigit(n, i)
	}
	return sum % 2, nil
}
