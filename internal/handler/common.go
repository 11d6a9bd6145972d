package handler // handler defines http handlers

import (
	"errors"  // errors provides sentinel values used in getUserID
	"regexp"  // regexp validates date and time path parameters
	"strconv" // strconv converts strings to numeric types
	"strings" // strings provides trimming and case helpers

	"github.com/labstack/echo/v4" // echo defines request context types
)

// getUserID extracts the user_id from echo.Context and converts it to
// uint64.  JWT claims round-trip through JSON, so the subject usually
// arrives as float64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// getEmail extracts the authenticated user's email from echo.Context.
func getEmail(c echo.Context) (string, error) {
	if v, ok := c.Get("email").(string); ok && v != "" {
		return strings.ToLower(v), nil
	}
	return "", errors.New("missing email in context")
}

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// validDate reports whether s looks like a YYYY-MM-DD calendar date.
func validDate(s string) bool { return dateRe.MatchString(s) }

// validTime reports whether s looks like a HH:MM wall-clock time.
func validTime(s string) bool { return timeRe.MatchString(s) }
