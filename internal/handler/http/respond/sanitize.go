package respond

import "regexp"

// redaction は秘密を含みうる断片と置換文字列の組
type redaction struct {
	pattern *regexp.Regexp
	repl    string
}

// 順序は意味を持つ: DSN は最後
var redactions = []redaction{
	// YouTube Data API のキーはクエリ文字列に載る
	{regexp.MustCompile(`([?&]key=)[^&\s"]+`), "${1}****"},
	// Bot API の URL はトークンを含む
	{regexp.MustCompile(`/bot\d+:[A-Za-z0-9_-]+`), "/bot****"},
	// webhook URL はそれ自体が認証情報
	{regexp.MustCompile(`(/api/webhooks/\d+/)[A-Za-z0-9_-]+`), "${1}****"},
	{regexp.MustCompile(`(hooks\.slack\.com/services/)[A-Za-z0-9/]+`), "${1}****"},
	{regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`), "://$1:****@"},
}

// SanitizeError returns err's message with credentials masked, or "" for nil.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, r := range redactions {
		msg = r.pattern.ReplaceAllString(msg, r.repl)
	}
	return msg
}
