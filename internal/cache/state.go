package cache

import (
	"fmt"
	"strings"

	"github.com/bassista/go_devbytes/internal/config"
)

// State is the refresh state machine: Idle -> Fetching -> Mapping -> Committing -> Idle.
// Failures return straight to Idle; there is no failed state.
type State int32

const (
	Idle State = iota
	Fetching
	Mapping
	Committing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Mapping:
		return "mapping"
	case Committing:
		return "committing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Policy decides what happens to a refresh requested while another is in flight.
type Policy int

const (
	// PolicyJoin makes the caller wait for the in-flight refresh and share its result.
	PolicyJoin Policy = iota
	// PolicyReject fails the caller immediately with ErrRefreshInProgress.
	PolicyReject
)

func (p Policy) String() string {
	if p == PolicyReject {
		return config.PolicyReject
	}
	return config.PolicyJoin
}

// ParsePolicy maps a config value to a Policy. Empty selects PolicyJoin.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case config.PolicyJoin, "":
		return PolicyJoin, nil
	case config.PolicyReject:
		return PolicyReject, nil
	default:
		return PolicyJoin, fmt.Errorf("unknown refresh policy %q (supported: %s, %s)", s, config.PolicyJoin, config.PolicyReject)
	}
}
