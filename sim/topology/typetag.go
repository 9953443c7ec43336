package topology

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inference-sim/qnetsim/sim"
)

// TypeTag is a parsed Kendall-style "A/S/s/c" queue type.
type TypeTag struct {
	ArrivalDist string
	ServiceDist string
	Servers     int
	Capacity    int // sim.Unbounded when absent or infinite
}

// General reports whether both distributions are "G".
func (t TypeTag) General() bool {
	return t.ArrivalDist == "G" && t.ServiceDist == "G"
}

var unboundedCapacity = map[string]bool{
	"": true, "inf": true, "infinity": true, "∞": true,
}

// ParseTypeTag parses "G/G/s" or "G/G/s/c". A missing server count means
// one server; a missing, "inf" or "∞" capacity means unbounded.
func ParseTypeTag(tag string) (TypeTag, error) {
	parts := strings.Split(strings.TrimSpace(tag), "/")
	if len(parts) < 2 || len(parts) > 4 {
		return TypeTag{}, fmt.Errorf("type %q: want A/S/s or A/S/s/c", tag)
	}
	t := TypeTag{
		ArrivalDist: strings.ToUpper(strings.TrimSpace(parts[0])),
		ServiceDist: strings.ToUpper(strings.TrimSpace(parts[1])),
		Servers:     1,
		Capacity:    sim.Unbounded,
	}
	if t.ArrivalDist == "" || t.ServiceDist == "" {
		return TypeTag{}, fmt.Errorf("type %q: empty distribution", tag)
	}
	if len(parts) > 2 {
		s, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return TypeTag{}, fmt.Errorf("type %q: server count: %w", tag, err)
		}
		t.Servers = s
	}
	if len(parts) > 3 {
		raw := strings.ToLower(strings.TrimSpace(parts[3]))
		if !unboundedCapacity[raw] {
			c, err := strconv.Atoi(raw)
			if err != nil {
				return TypeTag{}, fmt.Errorf("type %q: capacity: %w", tag, err)
			}
			if c < 0 {
				return TypeTag{}, fmt.Errorf("type %q: capacity must be >= 0, got %d", tag, c)
			}
			t.Capacity = c
		}
	}
	return t, nil
}
