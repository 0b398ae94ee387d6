package utils

import (
	"fmt"
	"strconv"
	"strings"
)

const MaxPageSize = 100

// ParsePagination validates limit (1..MaxPageSize) and offset (>= 0). Empty
// values fall back to defLimit and 0.
func ParsePagination(limitStr, offsetStr string, defLimit int) (int, int, error) {
	limit, offset := defLimit, 0
	if s := strings.TrimSpace(limitStr); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxPageSize {
			return 0, 0, fmt.Errorf("limit must be an integer between 1 and %d", MaxPageSize)
		}
		limit = n
	}
	if s := strings.TrimSpace(offsetStr); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
		offset = n
	}
	return limit, offset, nil
}

// ParseCoords validates a latitude/longitude pair given as strings.
func ParseCoords(latStr, lngStr string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("lat must be a number between -90 and 90")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("lng must be a number between -180 and 180")
	}
	return lat, lng, nil
}

func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

// ParseOptionalInt returns 0 for an empty string.
func ParseOptionalInt(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

func ParseOptionalFloat(s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
