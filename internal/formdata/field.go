// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package formdata

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// fieldKind is the closed set of field variants the extractor understands.
type fieldKind int

const (
	// kindText covers text-like inputs, hidden, password and unknown types.
	kindText fieldKind = iota
	kindCheckable
	kindTextarea
	kindSelectOne
	kindSelectMultiple
)

// field is a named form control found in a form.
type field struct {
	kind fieldKind
	name string
	node *html.Node
}

// classify reports whether n is a named form control and which variant it is.
func classify(n *html.Node) (field, bool) {
	if n.Type != html.ElementNode {
		return field{}, false
	}

	var kind fieldKind
	switch n.DataAtom {
	case atom.Input:
		switch strings.ToLower(strings.TrimSpace(attrValue(n, "type"))) {
		case "checkbox", "radio":
			kind = kindCheckable
		default:
			kind = kindText
		}
	case atom.Textarea:
		kind = kindTextarea
	case atom.Select:
		kind = kindSelectOne
		if hasAttr(n, "multiple") {
			kind = kindSelectMultiple
		}
	default:
		return field{}, false
	}

	name := attrValue(n, "name")
	if name == "" {
		return field{}, false
	}
	return field{kind: kind, name: name, node: n}, true
}

// submitted returns the values this field contributes, in document order.
func (f field) submitted() []string {
	switch f.kind {
	case kindCheckable:
		if !hasAttr(f.node, "checked") {
			return nil
		}
		return []string{attrValue(f.node, "value")}
	case kindTextarea:
		return []string{textContent(f.node)}
	case kindSelectOne:
		options := findOptions(f.node)
		if len(options) == 0 {
			return []string{""}
		}
		for _, opt := range options {
			if hasAttr(opt, "selected") {
				return []string{optionValue(opt)}
			}
		}
		return []string{optionValue(options[0])}
	case kindSelectMultiple:
		var out []string
		for _, opt := range findOptions(f.node) {
			if hasAttr(opt, "selected") {
				out = append(out, optionValue(opt))
			}
		}
		return out
	default:
		return []string{attrValue(f.node, "value")}
	}
}

// collectFields walks the descendants of form in document order. Nested
// forms are not entered, and neither are the contents of select and
// textarea once they have been classified.
func collectFields(form *html.Node) []field {
	var fields []field
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == atom.Form {
				continue
			}
			if f, ok := classify(c); ok {
				fields = append(fields, f)
			}
			switch c.DataAtom {
			case atom.Select, atom.Textarea:
				continue
			}
			walk(c)
		}
	}
	walk(form)
	return fields
}

// findOptions returns the option descendants of a select, including those
// inside optgroups.
func findOptions(sel *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == atom.Option {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(sel)
	return out
}

// optionValue is the value attribute of an option, or its text when absent.
func optionValue(opt *html.Node) string {
	if v, ok := lookupAttr(opt, "value"); ok {
		return v
	}
	return strings.Join(strings.Fields(textContent(opt)), " ")
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attrValue(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

// hasAttr reports whether a marker attribute such as checked is present,
// regardless of its value.
func hasAttr(n *html.Node, key string) bool {
	_, ok := lookupAttr(n, key)
	return ok
}
