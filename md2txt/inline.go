package md2txt

import "regexp"

// 分隔符之间的内容不跨行
const lineChars = `[^\n\r\x{2028}\x{2029}]`

type replacement struct {
	name string
	re   *regexp.Regexp
	sub  string
}

// inlineReplacements run in order over the whole text. Double delimiters
// come before single ones so that "**" is consumed before "*" is tried.
// Unbalanced markers are left alone; underscores inside words such as
// snake_case_name are stripped in pairs.
var inlineReplacements = []replacement{
	{"bold-asterisk", regexp.MustCompile(`\*\*(` + lineChars + `+?)\*\*`), "${1}"},
	{"italic-asterisk", regexp.MustCompile(`\*(` + lineChars + `+?)\*`), "${1}"},
	{"bold-underscore", regexp.MustCompile(`__(` + lineChars + `+?)__`), "${1}"},
	{"italic-underscore", regexp.MustCompile(`_(` + lineChars + `+?)_`), "${1}"},
	{"code", regexp.MustCompile("`(" + lineChars + "+?)`"), "${1}"},
	// 保留链接文本，丢弃地址
	{"link", regexp.MustCompile(`\[(` + lineChars + `+?)\]\(` + lineChars + `+?\)`), "${1}"},
}

// StripInline removes bold, italic, inline code and link syntax.
func StripInline(text string) string {
	for _, r := range inlineReplacements {
		text = r.re.ReplaceAllString(text, r.sub)
	}
	return text
}
