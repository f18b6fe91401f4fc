package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bookline/bot-server-go/internal/model"
)

// Input parsing for the booking flow. Parsers return ok=false for anything
// invalid; the engine answers with a re-prompt and stays in the same state.

var namePattern = regexp.MustCompile(`^[\p{L}][\p{L} .'-]{1,99}$`)

func parseName(input string) (string, bool) {
	name := strings.TrimSpace(input)
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return "", false
	}
	if !namePattern.MatchString(name) {
		return "", false
	}
	return name, true
}

// parseBookingFor normalizes the self aliases and otherwise applies the
// name rules.
func parseBookingFor(input string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "self", "myself", "me":
		return "self", true
	}
	return parseName(input)
}

func parseGender(input string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "male", "m":
		return "male", true
	case "2", "female", "f":
		return "female", true
	case "3", "other":
		return "other", true
	}
	return "", false
}

// matchService accepts a 1-based index into the offered list, an exact
// case-insensitive name, or a substring that matches exactly one service.
func matchService(input string, services []model.Service) (*model.Service, bool) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, false
	}

	if idx, err := strconv.Atoi(text); err == nil {
		if idx < 1 || idx > len(services) {
			return nil, false
		}
		return &services[idx-1], true
	}

	lower := strings.ToLower(text)
	for i := range services {
		if strings.ToLower(services[i].Name) == lower {
			return &services[i], true
		}
	}

	var match *model.Service
	for i := range services {
		if strings.Contains(strings.ToLower(services[i].Name), lower) {
			if match != nil {
				// ambiguous
				return nil, false
			}
			match = &services[i]
		}
	}
	if match == nil {
		return nil, false
	}
	return match, true
}

// dateWindow returns the rolling candidate dates offered to the user,
// starting today.
func dateWindow(now time.Time, days int) []time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dates := make([]time.Time, days)
	for i := range dates {
		dates[i] = today.AddDate(0, 0, i)
	}
	return dates
}

// parseDate accepts a 1-based index into the window, the words today and
// tomorrow, or an explicit ISO date. Dates before today are rejected.
func parseDate(input string, now time.Time, windowDays int) (time.Time, bool) {
	text := strings.ToLower(strings.TrimSpace(input))
	window := dateWindow(now, windowDays)
	today := window[0]

	switch text {
	case "today":
		return today, true
	case "tomorrow":
		return window[1], true
	}

	if idx, err := strconv.Atoi(text); err == nil {
		if idx < 1 || idx > len(window) {
			return time.Time{}, false
		}
		return window[idx-1], true
	}

	parsed, err := time.ParseInLocation(dateLayout, text, now.Location())
	if err != nil {
		return time.Time{}, false
	}
	if parsed.Before(today) {
		return time.Time{}, false
	}
	return parsed, true
}

// parseSlotIndex accepts only a 1-based index into the displayed slot list;
// raw time strings are rejected because the list is refetched every turn
// and a raw time could name a slot the user never saw.
func parseSlotIndex(input string, count int) (int, bool) {
	idx, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || idx < 1 || idx > count {
		return 0, false
	}
	return idx, true
}

func isAffirmative(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "confirm", "yes", "y", "ok", "okay":
		return true
	}
	return false
}

func isNegative(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "cancel", "no", "n":
		return true
	}
	return false
}

func isCancelWord(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), "cancel")
}
