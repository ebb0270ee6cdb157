package event

import (
	"fmt"
	"strconv"
	"strings"
)

// The external schema stores title, location, volunteer count and duration
// packed into the event's free-text description using a line-prefix
// convention. The first line is always the title; lines matching a known
// prefix are extracted; whatever remains is the free-form description.
// Prefixes are kept verbatim for wire compatibility with existing data.
const (
	locationPrefix   = "Место проведения:"
	volunteersPrefix = "Требуется волонтеров:"
	durationPrefix   = "Длительность:"
	durationSuffix   = "часов"

	DefaultLocation         = "not specified"
	DefaultVolunteersNeeded = 0
	DefaultDurationHours    = 2
)

// Details are the fields recovered from a packed description.
type Details struct {
	Title            string
	Location         string
	VolunteersNeeded int
	DurationHours    int
	Description      string
}

// ParseDescription unpacks a convention-encoded description. Parsing is
// defensive: a malformed or absent line yields its default, never an error.
func ParseDescription(raw string) Details {
	d := Details{
		Location:         DefaultLocation,
		VolunteersNeeded: DefaultVolunteersNeeded,
		DurationHours:    DefaultDurationHours,
	}

	lines := strings.Split(raw, "\n")
	d.Title = strings.TrimSpace(lines[0])

	var body []string
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, locationPrefix):
			if loc := strings.TrimSpace(strings.TrimPrefix(line, locationPrefix)); loc != "" {
				d.Location = loc
			}
		case strings.HasPrefix(line, volunteersPrefix):
			if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, volunteersPrefix))); err == nil {
				d.VolunteersNeeded = n
			}
		case strings.HasPrefix(line, durationPrefix):
			val := strings.TrimSpace(strings.TrimPrefix(line, durationPrefix))
			val = strings.TrimSpace(strings.TrimSuffix(val, durationSuffix))
			if n, err := strconv.Atoi(val); err == nil {
				d.DurationHours = n
			}
		default:
			body = append(body, line)
		}
	}
	d.Description = strings.Join(body, "\n")
	return d
}

// ComposeDescription packs event fields into the wire layout existing
// clients expect.
func ComposeDescription(ne NewEvent) string {
	var b strings.Builder
	b.WriteString(ne.Title)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", locationPrefix, ne.Location)
	fmt.Fprintf(&b, "%s %d\n", volunteersPrefix, ne.VolunteersNeeded)
	fmt.Fprintf(&b, "%s %d %s", durationPrefix, ne.DurationHours, durationSuffix)
	if ne.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(ne.Description)
	}
	return b.String()
}
