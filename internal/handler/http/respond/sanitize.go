package respond

import "regexp"

var (
	bearerPattern = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`)
	jwtPattern    = regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)

	// key= (WeCom), access_token= (DingTalk) and token= query parameters.
	queryTokenPattern = regexp.MustCompile(`(?i)([?&](?:key|access_token|token)=)[^&\s"]+`)

	// Discord and Slack webhook secrets live in the path.
	discordHookPattern = regexp.MustCompile(`(/api/webhooks/\d+/)[A-Za-z0-9_-]+`)
	slackHookPattern   = regexp.MustCompile(`(hooks\.slack\.com/services/)[A-Za-z0-9/]+`)
	feishuHookPattern  = regexp.MustCompile(`(/open-apis/bot/v2/hook/)[A-Za-z0-9-]+`)

	userinfoPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns err's message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// Sanitize masks bearer tokens, JWTs, webhook secrets and URL passwords in s.
func Sanitize(s string) string {
	s = bearerPattern.ReplaceAllString(s, "${1}****")
	s = jwtPattern.ReplaceAllString(s, "****")
	s = queryTokenPattern.ReplaceAllString(s, "${1}****")
	s = discordHookPattern.ReplaceAllString(s, "${1}****")
	s = slackHookPattern.ReplaceAllString(s, "${1}****")
	s = feishuHookPattern.ReplaceAllString(s, "${1}****")
	s = userinfoPattern.ReplaceAllString(s, "://$1:****@")
	return s
}
