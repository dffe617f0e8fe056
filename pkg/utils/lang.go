package utils

import (
	"github.com/abadojack/whatlanggo"
)

var whatLangOpts = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Eng: true,
		whatlanggo.Cmn: true,
		whatlanggo.Spa: true,
		whatlanggo.Fra: true,
		whatlanggo.Deu: true,
		whatlanggo.Por: true,
		whatlanggo.Rus: true,
		whatlanggo.Jpn: true,
		whatlanggo.Kor: true,
		whatlanggo.Ita: true,
	},
}

func WhatLang(query string) string {
	info := whatlanggo.DetectWithOptions(query, whatLangOpts)
	return info.Lang.String()
}

// DetectLanguage 置信度不足时返回空字符串
func DetectLanguage(text string, minConfidence float64) string {
	if text == "" {
		return ""
	}
	info := whatlanggo.DetectWithOptions(text, whatLangOpts)
	if info.Confidence < minConfidence {
		return ""
	}
	return info.Lang.String()
}
