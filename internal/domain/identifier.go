package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedIdentifier is returned when a URL does not follow the positional
// date convention of the catalog. It means the site format changed.
var ErrMalformedIdentifier = errors.New("malformed identifier")

const (
	yearLen  = 4
	monthLen = 2
	dayStart = 6
	dayEnd   = 8 // exclusive
)

// JoinURL appends href to root with exactly one '/' between them.
func JoinURL(root, href string) string {
	return strings.TrimSuffix(root, "/") + "/" + strings.TrimPrefix(href, "/")
}

// Tail returns the final path segment of url, after the last '/'.
func Tail(url string) (string, error) {
	idx := strings.LastIndex(url, "/")
	if idx < 0 {
		return "", fmt.Errorf("%w: no '/' in %q", ErrMalformedIdentifier, url)
	}
	return url[idx+1:], nil
}

// ParseMonth builds a Month from a root index URL whose tail is exactly YYYYMM.
func ParseMonth(url string) (*Month, error) {
	tail, err := Tail(url)
	if err != nil {
		return nil, err
	}

	if len(tail) < yearLen {
		return nil, fmt.Errorf("%w: unexpected year length in tail %q: %s", ErrMalformedIdentifier, tail, url)
	}
	if len(tail) != yearLen+monthLen {
		return nil, fmt.Errorf("%w: unexpected month length in tail %q: %s", ErrMalformedIdentifier, tail, url)
	}

	y, m := tail[:yearLen], tail[yearLen:]
	year, err := parsePositive(y)
	if err != nil {
		return nil, fmt.Errorf("%w: year %q in %s: %v", ErrMalformedIdentifier, y, url, err)
	}
	month, err := parsePositive(m)
	if err != nil {
		return nil, fmt.Errorf("%w: month %q in %s: %v", ErrMalformedIdentifier, m, url, err)
	}

	return &Month{
		Year:  year,
		Month: month,
		URL:   url,
		Days:  []Day{},
	}, nil
}

// ParseDay builds a Day from a month index link whose tail carries the day at
// positions 6-7 (YYYYMMDD...). Only the range is checked, not the whole date.
func ParseDay(url string) (Day, error) {
	tail, err := Tail(url)
	if err != nil {
		return Day{}, err
	}

	if len(tail) < dayEnd {
		return Day{}, fmt.Errorf("%w: tail %q has no range %d..%d: %s",
			ErrMalformedIdentifier, tail, dayStart, dayEnd-1, url)
	}

	d := tail[dayStart:dayEnd]
	day, err := parsePositive(d)
	if err != nil {
		return Day{}, fmt.Errorf("%w: day %q in %s: %v", ErrMalformedIdentifier, d, url, err)
	}

	return Day{Day: day, URL: url}, nil
}

func parsePositive(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.New("must be positive")
	}
	return int(n), nil
}
