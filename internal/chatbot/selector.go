// Package chatbot picks canned replies for free-text questions by keyword.
package chatbot

import "strings"

// FallbackReply is returned when no rule matches.
const FallbackReply = "맞춤 답변을 준비 중입니다."

type KeywordRule struct {
	Keyword string `json:"keyword"`
	Reply   string `json:"reply"`
}

// Match returns the first rule, in table order, whose keyword occurs in input.
// Matching is a plain case-sensitive substring test, so an empty keyword matches any input.
func Match(input string, rules []KeywordRule) (KeywordRule, bool) {
	for _, rule := range rules {
		if strings.Contains(input, rule.Keyword) {
			return rule, true
		}
	}
	return KeywordRule{}, false
}

func SelectReply(input string, rules []KeywordRule) string {
	reply, _ := Reply(input, rules)
	return reply
}

// Reply is SelectReply that also reports whether a rule matched.
func Reply(input string, rules []KeywordRule) (string, bool) {
	if rule, ok := Match(input, rules); ok {
		return rule.Reply, true
	}
	return FallbackReply, false
}
