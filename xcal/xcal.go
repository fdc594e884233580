// Package xcal renders iCalendar component trees as xCal XML (RFC 6321).
// Only the write side is implemented; decoding calendar documents stays
// with the textual iCalendar layer.
package xcal

import (
	"sort"
	"strings"
	"time"

	"github.com/beevik/etree"
	goical "github.com/emersion/go-ical"
)

// Namespace is the xCal XML namespace.
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// Marshal renders a component tree into an xCal document, wrapped in the
// icalendar root element.
func Marshal(comp *goical.Component) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("icalendar")
	root.CreateAttr("xmlns", Namespace)
	renderComponent(root, comp)
	return doc, nil
}

// MarshalString is Marshal rendered to an indented string.
func MarshalString(comp *goical.Component) (string, error) {
	doc, err := Marshal(comp)
	if err != nil {
		return "", err
	}
	doc.Indent(2)
	return doc.WriteToString()
}

func renderComponent(parent *etree.Element, comp *goical.Component) {
	el := parent.CreateElement(strings.ToLower(comp.Name))

	if len(comp.Props) > 0 {
		props := el.CreateElement("properties")
		for _, name := range sortedPropNames(comp.Props) {
			for _, prop := range comp.Props[name] {
				renderProperty(props, prop)
			}
		}
	}

	if len(comp.Children) > 0 {
		children := el.CreateElement("components")
		for _, child := range comp.Children {
			renderComponent(children, child)
		}
	}
}

func sortedPropNames(props goical.Props) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func renderProperty(parent *etree.Element, prop goical.Prop) {
	el := parent.CreateElement(strings.ToLower(prop.Name))

	switch prop.Name {
	case goical.PropRecurrenceRule:
		renderRecur(el.CreateElement("recur"), prop.Value)
	case goical.PropDateTimeStart, goical.PropDateTimeEnd, goical.PropDateTimeStamp,
		goical.PropDue, goical.PropLastModified:
		renderDateValue(el, prop.Value)
	default:
		el.CreateElement("text").SetText(prop.Value)
	}
}

// renderRecur splits an RRULE value into the per-part elements xCal uses;
// list-valued parts repeat their element once per entry.
func renderRecur(el *etree.Element, value string) {
	for _, part := range strings.Split(value, ";") {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(key))
		for _, item := range strings.Split(val, ",") {
			el.CreateElement(name).SetText(strings.TrimSpace(item))
		}
	}
}

// renderDateValue converts iCalendar basic date/date-time text to the
// extended forms xCal mandates; unparseable values pass through as text.
func renderDateValue(el *etree.Element, value string) {
	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		el.CreateElement("date-time").SetText(t.Format("2006-01-02T15:04:05Z"))
		return
	}
	if t, err := time.Parse("20060102T150405", value); err == nil {
		el.CreateElement("date-time").SetText(t.Format("2006-01-02T15:04:05"))
		return
	}
	if t, err := time.Parse("20060102", value); err == nil {
		el.CreateElement("date").SetText(t.Format("2006-01-02"))
		return
	}
	el.CreateElement("text").SetText(value)
}
