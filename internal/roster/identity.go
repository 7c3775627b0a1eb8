// Package roster defines student identities and the folder naming convention
// shared by gallery building, matching and export.
package roster

import (
	"cmp"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// ErrMalformedKey is returned when a folder key cannot be split into reg_no and name.
var ErrMalformedKey = errors.New("malformed identity key")

// Identity is one enrolled student. RegNo is the stable identifier, Name is
// presentation only. Branch and Session group students into cohorts and are
// constants.UnknownGroup when the key carries no grouping.
type Identity struct {
	RegNo   string `json:"reg_no"`
	Name    string `json:"name"`
	Branch  string `json:"branch"`
	Session string `json:"session"`
}

// Grouped reports whether the identity carries branch/session grouping.
func (id Identity) Grouped() bool {
	return id.Branch != constants.UnknownGroup || id.Session != constants.UnknownGroup
}

// Key renders the identity in the <reg_no>_<name>[_<branch>_<session>] folder convention.
// Spaces in the name become underscores, spaces in branch and session are dropped.
// An ungrouped name of three or more words keeps the explicit Unknown suffix,
// since the short form would parse back as a grouped key.
func (id Identity) Key() string {
	name := strings.ReplaceAll(id.Name, " ", "_")
	if !id.Grouped() && strings.Count(name, "_") < 2 {
		return id.RegNo + "_" + name
	}
	return fmt.Sprintf("%s_%s_%s_%s",
		id.RegNo, name,
		strings.ReplaceAll(id.Branch, " ", ""),
		strings.ReplaceAll(id.Session, " ", ""),
	)
}

// Cohort returns the grouping the identity belongs to.
func (id Identity) Cohort() Cohort {
	return Cohort{Branch: id.Branch, Session: id.Session}
}

func (id Identity) String() string {
	return id.RegNo + " " + id.Name
}

// NewIdentity builds an identity from registration form values.
func NewIdentity(regNo, name, branch, session string) (Identity, error) {
	regNo = strings.TrimSpace(regNo)
	name = strings.Join(strings.Fields(strings.ReplaceAll(name, "_", " ")), " ")
	if regNo == "" || name == "" {
		return Identity{}, fmt.Errorf("%w: registration number and name are required", ErrMalformedKey)
	}
	if strings.Contains(regNo, "_") {
		return Identity{}, fmt.Errorf("%w: registration number %q must not contain '_'", ErrMalformedKey, regNo)
	}
	// Keys drop spaces from the grouping, so the identity does too.
	branch = strings.NewReplacer(" ", "", "_", "").Replace(branch)
	session = strings.NewReplacer(" ", "", "_", "").Replace(session)
	if branch == "" {
		branch = constants.UnknownGroup
	}
	if session == "" {
		session = constants.UnknownGroup
	}
	return Identity{RegNo: regNo, Name: name, Branch: branch, Session: session}, nil
}

// ParseKey parses a folder key. With four or more segments the first is the
// registration number, the last two are branch and session and the rest is the
// name. With two or three segments everything after the registration number is
// the name and the grouping is unknown. Underscores in names become spaces.
func ParseKey(key string) (Identity, error) {
	parts := strings.Split(key, "_")
	if len(parts) < 2 || parts[0] == "" {
		return Identity{}, fmt.Errorf("%w: %q must be <reg_no>_<name>", ErrMalformedKey, key)
	}

	id := Identity{
		RegNo:   parts[0],
		Branch:  constants.UnknownGroup,
		Session: constants.UnknownGroup,
	}
	nameParts := parts[1:]
	if len(parts) >= 4 {
		id.Branch = parts[len(parts)-2]
		id.Session = parts[len(parts)-1]
		nameParts = parts[1 : len(parts)-2]
	}
	id.Name = strings.TrimSpace(strings.Join(nameParts, " "))
	if id.Name == "" {
		return Identity{}, fmt.Errorf("%w: %q has an empty name", ErrMalformedKey, key)
	}
	return id, nil
}

// Compare orders identities by registration number, then name.
func Compare(a, b Identity) int {
	if c := cmp.Compare(a.RegNo, b.RegNo); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}
