package utils

import (
	"crypto/md5"
	"fmt"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// PeriodHash builds a stable cache key component for a date range.
func PeriodHash(startDate, endDate string) string {
	return HashString(startDate + ":" + endDate)
}
