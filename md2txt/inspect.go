package md2txt

import (
	"github.com/russross/blackfriday/v2"
)

// Summary counts the Markdown constructs a real parser finds in a document.
type Summary struct {
	Headings   int `json:"headings"`
	ListItems  int `json:"list_items"`
	Emphasis   int `json:"emphasis"`
	Strong     int `json:"strong"`
	CodeSpans  int `json:"code_spans"`
	CodeBlocks int `json:"code_blocks"`
	Links      int `json:"links"`
	Images     int `json:"images"`
}

// Markup counts the heading and inline markup that Convert is expected to remove.
func (s Summary) Markup() int {
	return s.Headings + s.Emphasis + s.Strong + s.CodeSpans + s.Links
}

// Inspect parses markdown with blackfriday and counts what it sees.
// It only reports; Convert never depends on it.
func Inspect(markdown string) Summary {
	var sum Summary
	if IsBlank(markdown) {
		return sum
	}
	md := blackfriday.New(blackfriday.WithExtensions(blackfriday.CommonExtensions))
	root := md.Parse([]byte(markdown))
	root.Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering {
			return blackfriday.GoToNext
		}
		switch node.Type {
		case blackfriday.Heading:
			sum.Headings++
		case blackfriday.Item:
			sum.ListItems++
		case blackfriday.Emph:
			sum.Emphasis++
		case blackfriday.Strong:
			sum.Strong++
		case blackfriday.Code:
			sum.CodeSpans++
		case blackfriday.CodeBlock:
			sum.CodeBlocks++
		case blackfriday.Link:
			sum.Links++
		case blackfriday.Image:
			sum.Images++
		}
		return blackfriday.GoToNext
	})
	return sum
}
