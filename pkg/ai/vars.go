package ai

import "strings"

// prompt 模板中的占位符
const (
	PROMPT_VAR_SPEAKERS   = "${speakers}"
	PROMPT_VAR_SUMMARY    = "${summary}"
	PROMPT_VAR_HOOKS      = "${hooks}"
	PROMPT_VAR_DIRECTIVES = "${directives}"
	PROMPT_VAR_LANG       = "${lang}"
	PROMPT_VAR_SOURCE     = "${source}"
)

// ReplaceVars 按顺序替换模板中的占位符，pairs 为 key,value 交替排列
func ReplaceVars(tpl string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(tpl)
}
