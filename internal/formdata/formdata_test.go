// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package formdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const threeForms = `
<form id="personal-details">
	<input type="hidden" name="csrfmiddlewaretoken" value="Z783HTL5Bc2J54WhAtEeR3eefM1FBkq0">
	<input type="hidden" name="no_value_input">
	<input type="hidden" value="no name input">
	<div class="mt-8 max-w-md">
		<label class="block">
			<span>Full name</span>
			<input type="text" name="name" value="Jane Doe" placeholder="">
		</label>
		<label class="block">
			<span>Email address</span>
			<input type="email" name="email" value="jane@example.com">
		</label>
	</div>
</form>
<form id="event-details">
	<div>
		<input type="date" name="date" value="2023-01-01">
		<select name="event_type">
			<option value="corporate">Corporate event</option>
			<option value="wedding">Wedding</option>
			<option value="birthday">Birthday</option>
			<option value="other" selected>Other</option>
		</select>
		<select name="ages" multiple>
			<option>Infants</option>
			<option>Children</option>
			<option>Teenagers</option>
			<option selected>18-30</option>
			<option selected>30-50</option>
			<option>50-70</option>
			<option>70+</option>
		</select>
	</div>
</form>
<form id="market-research">
	<fieldset>
		<legend>How many pets do you have?</legend>
		<div class="radio-list">
			<label><input type="radio" name="pets" value="0" /> None</label>
			<label><input type="radio" name="pets" value="1" /> One</label>
			<label><input type="radio" name="pets" value="2" checked /> Two</label>
			<label><input type="radio" name="pets" value="3+" /> Three or more</label>
		</div>
	</fieldset>
	<fieldset>
		<legend>Which two colours do you like best?</legend>
		<label><input type="checkbox" name="colours" value="cyan"> Cyan</label>
		<label><input type="checkbox" name="colours" value="magenta" checked /> Magenta</label>
		<label><input type="checkbox" name="colours" value="yellow" /> Yellow</label>
		<label><input type="checkbox" name="colours" value="black" checked /> Black</label>
		<label><input type="checkbox" name="colours" value="white" /> White</label>
	</fieldset>
	<label>
		<span>Tell us what you love</span>
		<textarea name="love" rows="3">Comic books</textarea>
	</label>
</form>
`

var (
	personalDetails = []Field{
		{Name: "no_value_input", Values: []string{""}},
		{Name: "name", Values: []string{"Jane Doe"}},
		{Name: "email", Values: []string{"jane@example.com"}},
	}
	eventDetails = []Field{
		{Name: "date", Values: []string{"2023-01-01"}},
		{Name: "event_type", Values: []string{"other"}},
		{Name: "ages", Values: []string{"18-30", "30-50"}},
	}
	marketResearch = []Field{
		{Name: "pets", Values: []string{"2"}},
		{Name: "colours", Values: []string{"magenta", "black"}},
		{Name: "love", Values: []string{"Comic books"}},
	}
)

func TestFromHTML_FirstFormByDefault(t *testing.T) {
	v, err := FromHTML(threeForms)
	require.NoError(t, err)
	assert.Equal(t, personalDetails, v.Lists())

	first, err := FromHTML(threeForms, WithFormIndex(0))
	require.NoError(t, err)
	assert.Equal(t, v.Lists(), first.Lists())
}

func TestFromHTML_IncludeCSRF(t *testing.T) {
	v, err := FromHTML(threeForms, IncludeCSRF())
	require.NoError(t, err)

	want := append([]Field{
		{Name: "csrfmiddlewaretoken", Values: []string{"Z783HTL5Bc2J54WhAtEeR3eefM1FBkq0"}},
	}, personalDetails...)
	assert.Equal(t, want, v.Lists())
}

func TestFromHTML_CustomCSRFFieldName(t *testing.T) {
	src := `<form><input type="hidden" name="_token" value="abc"><input name="q" value="x"></form>`

	v, err := Extractor{CSRFFieldName: "_token"}.Extract(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"q"}, v.Keys())

	v, err = FromHTML(src, WithCSRFFieldName("_token"), IncludeCSRF())
	require.NoError(t, err)
	assert.Equal(t, []string{"_token", "q"}, v.Keys())
}

func TestFromHTML_FormIndex(t *testing.T) {
	tests := []struct {
		index int
		want  []Field
	}{
		{0, personalDetails},
		{2, marketResearch},
		{1, eventDetails},
	}
	for _, tt := range tests {
		v, err := FromHTML(threeForms, WithFormIndex(tt.index))
		require.NoError(t, err, "index %d", tt.index)
		assert.Equal(t, tt.want, v.Lists(), "index %d", tt.index)
	}
}

func TestFromHTML_FormID(t *testing.T) {
	tests := []struct {
		id   string
		want []Field
	}{
		{"event-details", eventDetails},
		{"personal-details", personalDetails},
		{"market-research", marketResearch},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			v, err := FromHTML(threeForms, WithFormID(tt.id))
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Lists())
		})
	}
}

func TestFromHTML_FormIDWinsOverIndex(t *testing.T) {
	v, err := FromHTML(threeForms, WithFormIndex(0), WithFormID("market-research"))
	require.NoError(t, err)
	assert.Equal(t, marketResearch, v.Lists())
}

func TestFromHTML_FormIDIsCaseSensitive(t *testing.T) {
	_, err := FromHTML(threeForms, WithFormID("Event-Details"))
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestFromHTML_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts []Option
		want error
	}{
		{"empty document", "", nil, ErrEmptyDocument},
		{"no forms", "<p>hello</p>", nil, ErrEmptyDocument},
		{"empty form", "<form></form>", nil, ErrEmptyForm},
		{"only unnamed fields", `<form><input value="x"><select><option>a</option></select></form>`, nil, ErrEmptyForm},
		{"invalid id", threeForms, []Option{WithFormID("invalid-id")}, ErrFormNotFound},
		{"index out of range", threeForms, []Option{WithFormIndex(5)}, ErrFormNotFound},
		{"negative index", threeForms, []Option{WithFormIndex(-1)}, ErrFormNotFound},
		{"index on empty document", "", []Option{WithFormIndex(0)}, ErrEmptyDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromHTML(tt.src, tt.opts...)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, v)
		})
	}
}

func TestFromHTML_FilteredToNothing(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unchecked checkboxes", `<form><input type="checkbox" name="a" value="1"><input type="radio" name="b" value="2"></form>`},
		{"csrf token only", `<form><input type="hidden" name="csrfmiddlewaretoken" value="tok"></form>`},
		{"multiple select without selection", `<form><select name="s" multiple><option>a</option></select></form>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromHTML(tt.src)
			require.NoError(t, err)
			require.NotNil(t, v)
			assert.Equal(t, 0, v.Len())
		})
	}
}

func TestFromHTML_FormIDScenario(t *testing.T) {
	src := `<form id="f2"></form><form id="f1"><input name="z" value="9"></form>`

	v, err := FromHTML(src, WithFormID("f1"))
	require.NoError(t, err)
	assert.Equal(t, []Field{{Name: "z", Values: []string{"9"}}}, v.Lists())

	_, err = FromHTML(src, WithFormID("missing"))
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestFromHTML_InputTypes(t *testing.T) {
	src := `
	<form>
		<input type="text" name="text_input" value="Text Value">
		<input type="password" name="password_input" value="Password Value">
		<input type="checkbox" name="checkbox_input" value="Checkbox Value" checked>
		<input type="radio" name="radio_input" value="Radio Value" checked>
		<input type="hidden" name="hidden_input" value="Hidden Value">
		<textarea name="textarea_input">Textarea Value</textarea>
	</form>`

	v, err := FromHTML(src)
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Name: "text_input", Values: []string{"Text Value"}},
		{Name: "password_input", Values: []string{"Password Value"}},
		{Name: "checkbox_input", Values: []string{"Checkbox Value"}},
		{Name: "radio_input", Values: []string{"Radio Value"}},
		{Name: "hidden_input", Values: []string{"Hidden Value"}},
		{Name: "textarea_input", Values: []string{"Textarea Value"}},
	}, v.Lists())
}

func TestFromHTML_CheckboxScenario(t *testing.T) {
	src := `<form><input name="a" value="1"><input type="checkbox" name="b" value="x" checked><input type="checkbox" name="c" value="y"></form>`

	v, err := FromHTML(src)
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Name: "a", Values: []string{"1"}},
		{Name: "b", Values: []string{"x"}},
	}, v.Lists())
	assert.False(t, v.Has("c"))
}

func TestFromHTML_Defaults(t *testing.T) {
	src := `
	<form>
		<input name="untyped">
		<input type="CHECKBOX" name="box" checked>
		<input type="radio" name="r" checked="false">
		<input type="color" name="colour" value="#ff0000">
		<textarea name="notes"></textarea>
		<input type="text" name="" value="empty name">
	</form>`

	v, err := FromHTML(src)
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Name: "untyped", Values: []string{""}},
		{Name: "box", Values: []string{""}},
		{Name: "r", Values: []string{""}},
		{Name: "colour", Values: []string{"#ff0000"}},
		{Name: "notes", Values: []string{""}},
	}, v.Lists())
}

func TestFromHTML_SelectFields(t *testing.T) {
	src := `
	<form>
		<select name="select_field">
			<option value="option1">Option 1</option>
			<option value="option2" selected>Option 2</option>
			<option value="option3">Option 3</option>
		</select>
		<select name="multiple_select_field" multiple>
			<option value="option1" selected>Option 1</option>
			<option value="option2">Option 2</option>
			<option value="option3" selected>Option 3</option>
		</select>
		<select name="unselected_single">
			<option value="first">First</option>
			<option value="second">Second</option>
		</select>
		<select name="unselected_multiple" multiple>
			<option value="first">First</option>
		</select>
		<select name="no_options"></select>
		<select name="grouped">
			<optgroup label="A"><option>  Alpha
				one </option></optgroup>
			<optgroup label="B"><option selected value="">Beta</option></optgroup>
		</select>
	</form>`

	v, err := FromHTML(src)
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Name: "select_field", Values: []string{"option2"}},
		{Name: "multiple_select_field", Values: []string{"option1", "option3"}},
		{Name: "unselected_single", Values: []string{"first"}},
		{Name: "no_options", Values: []string{""}},
		{Name: "grouped", Values: []string{""}},
	}, v.Lists())
	assert.False(t, v.Has("unselected_multiple"))
}

func TestFromHTML_OptionTextIsCollapsed(t *testing.T) {
	src := "<form><select name=\"s\"><option>\n   Two   words\n</option></select></form>"

	v, err := FromHTML(src)
	require.NoError(t, err)
	assert.Equal(t, "Two words", v.Get("s"))
}

func TestFromHTML_Fieldsets(t *testing.T) {
	src := `
	<form>
		<fieldset>
			<legend>Fieldset 1</legend>
			<input type="text" name="input1" value="Value 1">
			<input type="text" name="input2" value="Value 2">
		</fieldset>
		<fieldset>
			<legend>Fieldset 2</legend>
			<input type="text" name="input3" value="Value 3">
			<input type="text" name="input4" value="Value 4">
		</fieldset>
	</form>`

	v, err := FromHTML(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"input1", "input2", "input3", "input4"}, v.Keys())
	assert.Equal(t, "Value 3", v.Get("input3"))
}

func TestFromHTML_RepeatedNamesAccumulate(t *testing.T) {
	src := `
	<form>
		<input name="tag" value="a">
		<input name="other" value="o">
		<select name="tag"><option value="b" selected>b</option></select>
		<textarea name="tag">c</textarea>
	</form>`

	v, err := FromHTML(src)
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Name: "tag", Values: []string{"a", "b", "c"}},
		{Name: "other", Values: []string{"o"}},
	}, v.Lists())
}

func TestFromHTML_CSRFOnlyFormIsNotEmpty(t *testing.T) {
	src := `<form><input type="hidden" name="csrfmiddlewaretoken" value="t"></form>`

	v, err := FromHTML(src)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Len())
}

func TestFromHTML_Idempotent(t *testing.T) {
	a, err := FromHTML(threeForms, WithFormID("market-research"))
	require.NoError(t, err)
	b, err := FromHTML(threeForms, WithFormID("market-research"))
	require.NoError(t, err)
	assert.Equal(t, a.Lists(), b.Lists())
}

func TestCollectFields_SkipsNestedForms(t *testing.T) {
	element := func(a atom.Atom, attrs ...string) *html.Node {
		n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
		for i := 0; i+1 < len(attrs); i += 2 {
			n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
		}
		return n
	}

	outer := element(atom.Form)
	div := element(atom.Div)
	div.AppendChild(element(atom.Input, "name", "outer", "value", "1"))
	inner := element(atom.Form)
	inner.AppendChild(element(atom.Input, "name", "inner", "value", "2"))
	outer.AppendChild(div)
	outer.AppendChild(inner)
	outer.AppendChild(element(atom.Input, "name", "after", "value", "3"))

	fields := collectFields(outer)
	require.Len(t, fields, 2)
	assert.Equal(t, "outer", fields[0].name)
	assert.Equal(t, "after", fields[1].name)
}
