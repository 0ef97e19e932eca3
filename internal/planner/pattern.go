package planner

import (
	"errors"
	"fmt"
	"strings"
)

// DayRole is the slot a day of the plan week fills.
type DayRole string

const (
	RoleRest    DayRole = "rest"
	RoleLongRun DayRole = "long_run"
	RoleQuality DayRole = "quality"
	RoleEasy    DayRole = "easy"
)

var ErrInvalidPattern = errors.New("invalid weekly pattern")

// WeeklyPattern maps the 7 day offsets of a plan week to a role.
type WeeklyPattern [7]DayRole

// DefaultPattern rests on days 0 and 4 and puts the long run on day 5.
var DefaultPattern = WeeklyPattern{
	RoleRest, RoleQuality, RoleEasy, RoleQuality, RoleRest, RoleLongRun, RoleEasy,
}

// ParsePattern builds a pattern from 7 role names.
func ParsePattern(roles []string) (WeeklyPattern, error) {
	var p WeeklyPattern
	if len(roles) != len(p) {
		return p, fmt.Errorf("%w: need 7 roles, got %d", ErrInvalidPattern, len(roles))
	}
	for i, r := range roles {
		role := DayRole(strings.ToLower(strings.TrimSpace(r)))
		switch role {
		case RoleRest, RoleLongRun, RoleQuality, RoleEasy:
			p[i] = role
		default:
			return p, fmt.Errorf("%w: unknown role %q at day %d", ErrInvalidPattern, r, i)
		}
	}
	return p, p.Validate()
}

// Validate checks there is exactly one long-run day and at least one other
// running day to take the leftover mileage.
func (p WeeklyPattern) Validate() error {
	longRuns, running := 0, 0
	for _, r := range p {
		switch r {
		case RoleLongRun:
			longRuns++
		case RoleQuality, RoleEasy:
			running++
		case RoleRest:
		default:
			return fmt.Errorf("%w: unknown role %q", ErrInvalidPattern, r)
		}
	}
	if longRuns != 1 {
		return fmt.Errorf("%w: expected exactly one long-run day, got %d", ErrInvalidPattern, longRuns)
	}
	if running == 0 {
		return fmt.Errorf("%w: no running days besides the long run", ErrInvalidPattern)
	}
	return nil
}

// SplitDays is the number of days that share the leftover mileage.
func (p WeeklyPattern) SplitDays() int {
	n := 0
	for _, r := range p {
		if r == RoleQuality || r == RoleEasy {
			n++
		}
	}
	return n
}

// Roles returns the role names, in day order.
func (p WeeklyPattern) Roles() []string {
	out := make([]string, len(p))
	for i, r := range p {
		out[i] = string(r)
	}
	return out
}
