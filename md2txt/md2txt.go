package md2txt

import (
	"regexp"
	"strings"
)

// 与 JavaScript 的 \s 保持一致，包含全角空格 U+3000
const whitespaceClass = `\t\n\v\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}`

var (
	// 行首 1~6 个 # 加空白
	headingPattern = regexp.MustCompile(`(?m)^#{1,6}[` + whitespaceClass + `]+`)

	// 三个及以上连续换行
	blankLinesPattern = regexp.MustCompile(`\n{3,}`)
)

type stage struct {
	name  string
	apply func(string) string
}

// 顺序固定，后面的步骤依赖前面的结果
var stages = []stage{
	{"headings", StripHeadings},
	{"lists", RenumberLists},
	{"inline", StripInline},
	{"blank-lines", CollapseBlankLines},
	{"trim", Trim},
}

// Convert turns Markdown into plain text. Unordered list items are
// renumbered as "1." for top level and "(1)" for indented items, and
// heading, emphasis, inline code and link markup is removed.
// Empty or whitespace-only input yields "".
func Convert(text string) string {
	if IsBlank(text) {
		return ""
	}
	result := text
	for _, s := range stages {
		result = s.apply(result)
	}
	return result
}

// StripHeadings removes leading heading markers from every line.
func StripHeadings(text string) string {
	return headingPattern.ReplaceAllString(text, "")
}

// CollapseBlankLines keeps at most one blank line between paragraphs.
func CollapseBlankLines(text string) string {
	return blankLinesPattern.ReplaceAllString(text, "\n\n")
}

// Trim removes leading and trailing whitespace.
func Trim(text string) string {
	return strings.TrimFunc(text, isSpace)
}

// IsBlank reports whether text is empty or whitespace only.
func IsBlank(text string) bool {
	return Trim(text) == ""
}

func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}
