// Package taskid models task and subtask identifiers. A task is named by a
// plain positive integer ("7") and a subtask by its parent and local ID
// joined with a dot ("7.2"). Every comparison goes through the canonical
// string form held by ID, so a numeric 7 and a string "7" are equal.
package taskid

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultSiblingThreshold is the legacy cutoff below which a bare integer
// inside a subtask's dependency list refers to a sibling subtask.
const DefaultSiblingThreshold = 100

var (
	// ErrEmptyID indicates an identifier argument was missing.
	ErrEmptyID = errors.New("identifier is required")
	// ErrInvalidID indicates an identifier could not be parsed.
	ErrInvalidID = errors.New("invalid identifier format")
)

// ID is the canonical string form of a task or subtask identifier.
// The zero value is the empty (absent) identifier.
type ID string

// FromInt returns the identifier of top-level task n.
func FromInt(n int) ID {
	return ID(strconv.Itoa(n))
}

// Sub returns the identifier of subtask child within task parent.
func Sub(parent, child int) ID {
	return ID(strconv.Itoa(parent) + "." + strconv.Itoa(child))
}

// Parse converts raw user input into an identifier. Dotted input must be
// two positive integers; anything else must be a base-10 integer.
func Parse(raw string) (ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyID
	}
	if strings.Contains(raw, ".") {
		p, c, ok := splitSub(raw)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrInvalidID, raw)
		}
		return Sub(p, c), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return FromInt(n), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// literals.
func MustParse(raw string) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the canonical form.
func (id ID) String() string { return string(id) }

// IsZero reports whether the identifier is absent.
func (id ID) IsZero() bool { return id == "" }

// IsSubtask reports whether id is in "parent.child" form. Malformed dotted
// identifiers are not subtasks.
func (id ID) IsSubtask() bool {
	_, _, ok := splitSub(string(id))
	return ok
}

// Task returns the task number for a task-form identifier.
func (id ID) Task() (int, bool) {
	if strings.Contains(string(id), ".") {
		return 0, false
	}
	n, err := strconv.Atoi(string(id))
	if err != nil || n <= 0 || strconv.Itoa(n) != string(id) {
		return 0, false
	}
	return n, true
}

// Parts returns the parent and child numbers of a subtask identifier.
func (id ID) Parts() (parent, child int, ok bool) {
	return splitSub(string(id))
}

// Parent returns the parent task number of a subtask identifier, or false
// for task-form and malformed identifiers.
func (id ID) Parent() (int, bool) {
	p, _, ok := splitSub(string(id))
	return p, ok
}

// Valid reports whether id is a well-formed task or subtask identifier.
func (id ID) Valid() bool {
	if _, ok := id.Task(); ok {
		return true
	}
	return id.IsSubtask()
}

// Qualify rewrites sibling shorthand. When owner is a subtask and dep is a
// bare integer below threshold, dep names a sibling and the fully qualified
// "parent.dep" form is returned. Everything else is returned unchanged.
// A threshold of zero or less disables the rewrite.
func Qualify(owner, dep ID, threshold int) ID {
	if threshold <= 0 {
		return dep
	}
	parent, ok := owner.Parent()
	if !ok {
		return dep
	}
	n, ok := dep.Task()
	if !ok || n >= threshold {
		return dep
	}
	return Sub(parent, n)
}

// Less orders identifiers: task IDs by number first, then subtask IDs by
// (parent, child), then malformed IDs lexicographically.
func Less(a, b ID) bool {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}
	switch ra {
	case 0:
		na, _ := a.Task()
		nb, _ := b.Task()
		return na < nb
	case 1:
		pa, ca, _ := a.Parts()
		pb, cb, _ := b.Parts()
		if pa != pb {
			return pa < pb
		}
		return ca < cb
	default:
		return a < b
	}
}

// Sort orders ids in place using Less.
func Sort(ids []ID) {
	sort.SliceStable(ids, func(i, j int) bool { return Less(ids[i], ids[j]) })
}

// Contains reports whether ids holds id.
func Contains(ids []ID, id ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// MarshalJSON writes task IDs as JSON numbers and everything else as
// strings, matching the on-disk tasks.json convention.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Task(); ok {
		return []byte(strconv.Itoa(n)), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts either a JSON number or a JSON string. Integers
// and parseable strings are canonicalized. Anything else, fractional
// numbers included, is kept verbatim so that repair can later recognize
// it as dangling.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) > 0 && data[0] != '"' {
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidID, data)
		}
		if n, err := num.Int64(); err == nil {
			*id = ID(strconv.FormatInt(n, 10))
			return nil
		}
		s = num.String()
	} else if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, data)
	}
	if parsed, err := Parse(s); err == nil {
		*id = parsed
		return nil
	}
	*id = ID(s)
	return nil
}

func rank(id ID) int {
	if _, ok := id.Task(); ok {
		return 0
	}
	if id.IsSubtask() {
		return 1
	}
	return 2
}

func splitSub(s string) (int, int, bool) {
	head, tail, found := strings.Cut(s, ".")
	if !found || strings.Contains(tail, ".") {
		return 0, 0, false
	}
	p, err := strconv.Atoi(head)
	if err != nil || p <= 0 {
		return 0, 0, false
	}
	c, err := strconv.Atoi(tail)
	if err != nil || c <= 0 {
		return 0, 0, false
	}
	return p, c, true
}
