// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package formdata extracts the data a browser would submit for an HTML form.
//
// It is used to turn a rendered admin page into a request payload, so that
// tests can post a form back exactly as it was pre-filled by the server.
package formdata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultCSRFFieldName is the hidden field excluded from results unless
// IncludeCSRF is given.
const DefaultCSRFFieldName = "csrfmiddlewaretoken"

var (
	// ErrEmptyDocument is returned when the document contains no forms.
	ErrEmptyDocument = errors.New("formdata: document contains no forms")
	// ErrFormNotFound is returned when the requested form id or index does not exist.
	ErrFormNotFound = errors.New("formdata: form not found")
	// ErrEmptyForm is returned when the selected form has no named fields.
	ErrEmptyForm = errors.New("formdata: form has no named fields")
)

type options struct {
	formID      string
	hasFormID   bool
	formIndex   int
	hasIndex    bool
	includeCSRF bool
	csrfName    string
}

// Option configures a single extraction.
type Option func(*options)

// WithFormID selects the form whose id attribute equals id. It takes
// precedence over WithFormIndex.
func WithFormID(id string) Option {
	return func(o *options) {
		o.formID = id
		o.hasFormID = true
	}
}

// WithFormIndex selects the form at the zero-based position i among all
// forms in document order.
func WithFormIndex(i int) Option {
	return func(o *options) {
		o.formIndex = i
		o.hasIndex = true
	}
}

// IncludeCSRF keeps the CSRF token field in the result.
func IncludeCSRF() Option {
	return func(o *options) {
		o.includeCSRF = true
	}
}

// WithCSRFFieldName overrides the name of the CSRF token field for one call.
func WithCSRFFieldName(name string) Option {
	return func(o *options) {
		o.csrfName = name
	}
}

// Extractor extracts form data using a configured CSRF token field name.
// The zero value uses DefaultCSRFFieldName.
type Extractor struct {
	CSRFFieldName string
}

// FromHTML extracts form data from src using DefaultCSRFFieldName.
func FromHTML(src string, opts ...Option) (*Values, error) {
	return Extractor{}.Extract(src, opts...)
}

// Extract parses src, selects one form and returns the values it would
// submit. Without a selector option the first form in the document is used.
func (e Extractor) Extract(src string, opts ...Option) (*Values, error) {
	o := options{csrfName: e.CSRFFieldName}
	for _, opt := range opts {
		opt(&o)
	}
	if o.csrfName == "" {
		o.csrfName = DefaultCSRFFieldName
	}

	form, err := selectForm(src, o)
	if err != nil {
		return nil, err
	}

	fields := collectFields(form)
	if len(fields) == 0 {
		return nil, ErrEmptyForm
	}

	values := NewValues()
	for _, f := range fields {
		if !o.includeCSRF && f.name == o.csrfName {
			continue
		}
		for _, v := range f.submitted() {
			values.Add(f.name, v)
		}
	}
	return values, nil
}

// selectForm parses the document and resolves the form requested by o.
func selectForm(src string, o options) (*html.Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	forms := doc.Find("form")
	if forms.Length() == 0 {
		return nil, ErrEmptyDocument
	}

	var sel *goquery.Selection
	switch {
	case o.hasFormID:
		sel = forms.FilterFunction(func(_ int, s *goquery.Selection) bool {
			id, ok := s.Attr("id")
			return ok && id == o.formID
		}).First()
		if sel.Length() == 0 {
			return nil, fmt.Errorf("%w: no form with id %q", ErrFormNotFound, o.formID)
		}
	case o.hasIndex:
		if o.formIndex < 0 || o.formIndex >= forms.Length() {
			return nil, fmt.Errorf("%w: index %d out of range, document has %d forms",
				ErrFormNotFound, o.formIndex, forms.Length())
		}
		sel = forms.Eq(o.formIndex)
	default:
		sel = forms.First()
	}

	return sel.Get(0), nil
}
