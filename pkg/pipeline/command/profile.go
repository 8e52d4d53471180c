package command

import (
	"strings"

	"github.com/pkg/errors"
)

// Profile is the execution backend a command is dispatched to.
type Profile string

const (
	// ProfileLocal runs the command directly on the host.
	ProfileLocal Profile = "local"
	// ProfileGrid submits the command to a batch queue.
	ProfileGrid Profile = "grid"
)

// GridSubmitter is the program the grid profile submits commands through.
const GridSubmitter = "qsub"

type argvBuilder func(fields []string) []string

var profiles = map[Profile]argvBuilder{
	ProfileLocal: func(fields []string) []string {
		return fields
	},
	ProfileGrid: func(fields []string) []string {
		return append([]string{GridSubmitter}, fields...)
	},
}

// Profiles returns the supported profiles.
func Profiles() []Profile {
	return []Profile{ProfileLocal, ProfileGrid}
}

// ParseProfile returns the profile named s.
func ParseProfile(s string) (Profile, error) {
	p := Profile(s)
	if !p.Valid() {
		return "", errors.Wrapf(ErrInvalidProfile, "unsupported profile %q, choose either %q or %q", s, ProfileLocal, ProfileGrid)
	}

	return p, nil
}

func (p Profile) Valid() bool {
	_, ok := profiles[p]

	return ok
}

func (p Profile) String() string { return string(p) }

// Argv splits cmd on whitespace and builds the argument vector of the profile.
func (p Profile) Argv(cmd string) ([]string, error) {
	build, ok := profiles[p]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidProfile, "unsupported profile %q", p)
	}

	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}

	return build(fields), nil
}
