package diag

import "regexp"

// secretKeyPatterns flags context-map keys whose values typically hold
// credentials.
var secretKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)`),
	regexp.MustCompile(`(?i)(secret[_-]?key|secretkey)`),
	regexp.MustCompile(`(?i)(access[_-]?key|accesskey)`),
	regexp.MustCompile(`(?i)(auth[_-]?token|authtoken)`),
	regexp.MustCompile(`(?i)(bearer[_-]?token|bearertoken)`),
	regexp.MustCompile(`(?i)(password|passwd|pwd)`),
	regexp.MustCompile(`(?i)(client[_-]?secret|clientsecret)`),
	regexp.MustCompile(`(?i)(refresh[_-]?token|refreshtoken)`),
	regexp.MustCompile(`(?i)(access[_-]?token|accesstoken)`),
	regexp.MustCompile(`(?i)^authorization$`),
}

// secretValuePatterns flags values that look like credentials regardless
// of what key they're stored under.
var secretValuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^bearer\s+[a-zA-Z0-9_\-.]+`),
	regexp.MustCompile(`(?i)^basic\s+[a-zA-Z0-9+/=]+`),
	regexp.MustCompile(`(?i)^ey[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+\.`), // JWT
	regexp.MustCompile(`^[a-zA-Z0-9_\-]{32,}$`),                    // long opaque token/hex/base64
}

// isSecretKey reports whether a context key looks like it names a
// credential.
func isSecretKey(key string) bool {
	for _, p := range secretKeyPatterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// isSecretValue reports whether a string value looks like a credential.
func isSecretValue(value string) bool {
	if len(value) < 8 {
		return false
	}
	for _, p := range secretValuePatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

// maskValue returns a masked rendering of a secret string, showing a
// short prefix/suffix for values long enough to remain useful in logs.
func maskValue(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	if len(value) < 12 {
		return value[:2] + "..." + value[len(value)-2:]
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// MaskContext returns a copy of ctx with secret-looking values replaced,
// so DiagnosticEntry.Context never carries credentials in the clear.
func MaskContext(ctx map[string]interface{}) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	out := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		if isSecretKey(k) || isSecretValue(s) {
			out[k] = maskValue(s)
			continue
		}
		out[k] = v
	}
	return out
}
