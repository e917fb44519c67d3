package generator

import (
	"html"
	"regexp"
	"strings"
)

var inlineRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\*\*(.+?)\*\*`), "<strong>$1</strong>"},
	{regexp.MustCompile(`__(.+?)__`), "<strong>$1</strong>"},
	{regexp.MustCompile(`\*(.+?)\*`), "<em>$1</em>"},
	{regexp.MustCompile(`_(.+?)_`), "<em>$1</em>"},
	{regexp.MustCompile("`(.+?)`"), "<code>$1</code>"},
}

// TextToHTML 把回答文本渲染成HTML,只支持换行、粗体、斜体和行内代码
//
// 文本先做HTML转义,上游返回的标签不会被执行。
func TextToHTML(text string) string {
	s := strings.ReplaceAll(text, `\n`, "\n")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = html.EscapeString(s)
	s = strings.ReplaceAll(s, "\n", "<br>")
	for _, rule := range inlineRules {
		s = rule.re.ReplaceAllString(s, rule.repl)
	}
	return s
}
