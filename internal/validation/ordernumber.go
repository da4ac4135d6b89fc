// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

// Номер заказа имеет вид ORD-YYYYMMDD-NNNNNN: дата оформления и
// шестизначный числовой суффикс.
const (
	orderNumberPrefix = "ORD-"
	orderDateLen      = 8
	orderSuffixLen    = 6
)

// IsValidOrderNumber проверяет формат номера заказа витрины.
func IsValidOrderNumber(number string) bool {
	wantLen := len(orderNumberPrefix) + orderDateLen + 1 + orderSuffixLen
	if len(number) != wantLen {
		return false
	}

	if number[:len(orderNumberPrefix)] != orderNumberPrefix {
		return false
	}

	date := number[len(orderNumberPrefix) : len(orderNumberPrefix)+orderDateLen]
	if !isDigits(date) {
		return false
	}

	if number[len(orderNumberPrefix)+orderDateLen] != '-' {
		return false
	}

	suffix := number[len(orderNumberPrefix)+orderDateLen+1:]
	return isDigits(suffix)
}

func isDigits(s string) bool {
	for _, ch := range s {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return len(s) > 0
}
