package md2txt

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// 缩进不超过 2 的列表项视为一级列表
const maxTopLevelIndent = 2

var listItemPattern = regexp.MustCompile(`(?s)^([` + whitespaceClass + `]*)[*+\-][` + whitespaceClass + `]+(.*)$`)

// Kind is the list classification of a single line.
type Kind int

const (
	NotAList Kind = iota
	TopLevelItem
	NestedItem
)

func (k Kind) String() string {
	switch k {
	case TopLevelItem:
		return "top-level"
	case NestedItem:
		return "nested"
	default:
		return "not-a-list"
	}
}

// Item is a classified line. Indent counts whitespace characters, a tab
// or a full-width space counts as one.
type Item struct {
	Kind    Kind
	Indent  int
	Content string
}

// Classify decides whether line is a bulleted list item and at which level.
// There is no third level: anything indented 3 or more is nested.
func Classify(line string) Item {
	m := listItemPattern.FindStringSubmatch(line)
	if m == nil {
		return Item{Kind: NotAList}
	}
	item := Item{Indent: utf8.RuneCountInString(m[1]), Content: m[2]}
	if item.Indent <= maxTopLevelIndent {
		item.Kind = TopLevelItem
	} else {
		item.Kind = NestedItem
	}
	return item
}

// ListState is the counter state carried from one line to the next.
// The zero value is the state at the start of a document.
type ListState struct {
	TopLevel   int
	Nested     int
	LastIndent int
}

// Step consumes one line and returns the next state and the emitted line.
//
// A blank line resets the nested counter only when the last list item was
// nested. Ordinary text lines leave every counter untouched, so nested
// numbering continues across prose.
func (s ListState) Step(line string) (ListState, string) {
	item := Classify(line)
	switch item.Kind {
	case TopLevelItem:
		s.TopLevel++
		s.Nested = 0
		s.LastIndent = 0
		return s, strconv.Itoa(s.TopLevel) + ". " + item.Content
	case NestedItem:
		s.Nested++
		s.LastIndent = item.Indent
		return s, "(" + strconv.Itoa(s.Nested) + ")" + item.Content
	}
	if IsBlank(line) && s.LastIndent > 0 {
		s.Nested = 0
	}
	return s, line
}

// RenumberLists rewrites bulleted list items with literal numbering.
// Lines are split on "\n" only; "\r" stays part of the line.
func RenumberLists(text string) string {
	lines := strings.Split(text, "\n")
	var state ListState
	for i, line := range lines {
		state, lines[i] = state.Step(line)
	}
	return strings.Join(lines, "\n")
}
