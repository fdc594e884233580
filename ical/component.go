// Package ical layers the recurrence model onto the emersion/go-ical
// component model: component nesting validation, UID assignment, RRULE
// property bridging and range expansion of calendar events.
package ical

import (
	"fmt"
	"strings"

	goical "github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// CannotNestComponentError reports an attempt to attach a component under a
// parent its kind does not allow.
type CannotNestComponentError struct {
	Child  string
	Parent string
}

func (e *CannotNestComponentError) Error() string {
	allowed := allowedParents[e.Child]
	if len(allowed) == 0 {
		return fmt.Sprintf("cannot nest %s under %s: %s is a root component",
			e.Child, e.Parent, e.Child)
	}
	return fmt.Sprintf("cannot nest %s under %s: allowed parents are %s",
		e.Child, e.Parent, strings.Join(allowed, ", "))
}

// allowedParents is the fixed component nesting table. Kinds absent from
// the table (vendor X- components) may nest anywhere.
var allowedParents = map[string][]string{
	goical.CompCalendar:         nil, // root only
	goical.CompEvent:            {goical.CompCalendar},
	goical.CompToDo:             {goical.CompCalendar},
	goical.CompJournal:          {goical.CompCalendar},
	goical.CompFreeBusy:         {goical.CompCalendar},
	goical.CompTimezone:         {goical.CompCalendar},
	goical.CompAlarm:            {goical.CompEvent, goical.CompToDo},
	goical.CompTimezoneStandard: {goical.CompTimezone},
	goical.CompTimezoneDaylight: {goical.CompTimezone},
}

// Node is one component in a calendar tree. It owns a go-ical component,
// mirrors attachments into the component's Children so the tree stays
// encodable, and enforces the nesting table.
type Node struct {
	comp     *goical.Component
	parent   *Node
	children []*Node
}

// uidComponents are the component kinds that carry a UID.
var uidComponents = map[string]bool{
	goical.CompEvent:    true,
	goical.CompToDo:     true,
	goical.CompJournal:  true,
	goical.CompFreeBusy: true,
}

// NewNode creates a detached node of the given component kind. Kinds that
// carry a UID get a fresh one assigned.
func NewNode(name string) *Node {
	comp := goical.NewComponent(name)
	if uidComponents[name] {
		comp.Props.SetText(goical.PropUID, uuid.NewString())
	}
	return &Node{comp: comp}
}

// Wrap adopts an existing component without copying it. Missing UIDs are
// not assigned; use NewNode for that.
func Wrap(comp *goical.Component) *Node {
	return &Node{comp: comp}
}

// Component returns the underlying go-ical component.
func (n *Node) Component() *goical.Component { return n.comp }

// Name returns the component kind, e.g. "VEVENT".
func (n *Node) Name() string { return n.comp.Name }

// Parent returns the node this one is attached under, or nil.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the attached child nodes.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// UID returns the component's UID property, or "" when absent.
func (n *Node) UID() string {
	if prop := n.comp.Props.Get(goical.PropUID); prop != nil {
		return prop.Value
	}
	return ""
}

// Attach places child under n, failing with *CannotNestComponentError when
// the child's kind does not allow n as a parent. A node attaches at most
// once.
func (n *Node) Attach(child *Node) error {
	if child.parent != nil {
		return fmt.Errorf("ical: %s is already attached under %s", child.Name(), child.parent.Name())
	}
	if allowed, known := allowedParents[child.Name()]; known {
		if !containsString(allowed, n.Name()) {
			return &CannotNestComponentError{Child: child.Name(), Parent: n.Name()}
		}
	}
	child.parent = n
	n.children = append(n.children, child)
	n.comp.Children = append(n.comp.Children, child.comp)
	return nil
}

func containsString(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}
