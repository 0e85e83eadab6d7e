// Package cpf validates the Brazilian individual taxpayer identifier (CPF):
// eleven digits, the last two of which are check digits over the first nine.
package cpf

import "strings"

// Length is the number of digits in a CPF.
const Length = 11

// Normalize strips every character that is not an ASCII digit, so
// "529.982.247-25" becomes "52998224725".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Valid reports whether s, after Normalize, is a checksum-valid CPF.
// Sequences of one repeated digit ("00000000000", "11111111111", ...) satisfy
// the checksum but are rejected, as they are never issued.
func Valid(s string) bool {
	s = Normalize(s)
	if len(s) != Length || allSame(s) {
		return false
	}

	var digits [Length]int
	for i := 0; i < Length; i++ {
		digits[i] = int(s[i] - '0')
	}

	d1, d2 := checkDigits(digits[:9])
	return d1 == digits[9] && d2 == digits[10]
}

// CheckDigits computes both check digits for the nine-digit base of a CPF.
// It returns ok=false when base does not consist of exactly nine digits.
func CheckDigits(base string) (d1, d2 int, ok bool) {
	if len(base) != 9 {
		return 0, 0, false
	}
	digits := make([]int, 9)
	for i := 0; i < 9; i++ {
		c := base[i]
		if c < '0' || c > '9' {
			return 0, 0, false
		}
		digits[i] = int(c - '0')
	}
	d1, d2 = checkDigits(digits)
	return d1, d2, true
}

// checkDigits expects exactly nine digits.
func checkDigits(base []int) (int, int) {
	sum := 0
	for i := 0; i < 9; i++ {
		sum += base[i] * (10 - i)
	}
	d1 := remainder(sum)

	sum = 0
	for i := 0; i < 9; i++ {
		sum += base[i] * (11 - i)
	}
	sum += d1 * 2
	d2 := remainder(sum)

	return d1, d2
}

// remainder is (sum*10) mod 11, with 10 folded to 0.
func remainder(sum int) int {
	r := (sum * 10) % 11
	if r == 10 || r == 11 {
		r = 0
	}
	return r
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
