package policy

import (
	"net/netip"
	"strings"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
)

var commandInjectionIndicators = []string{
	";", "&", "|", "`", "$", "$(", "${",
	"cat+", "whoami", "uname", "id", "ls",
	"exec=", "cmd=", "command=", "run=", "input=",
	"$(cat", "${cat", "/etc/passwd", "/etc/shadow",
}

var criticalMarkers = []string{
	"..", "../", `..\\`, "..%2f", "....//",
	"/windows/system32",
	"shell.php", "cmd.jsp", "wso.php", "backdoor",
	".jsp?", ".php?cmd=", ".asp?exec=",
	"php://", "data://", "expect://",
	"' or '1'='1", "or 1=1", "union select",
	"sleep(", "benchmark(", "waitfor delay",
	"--", "#", "/*", "*/",
}

var highKeywords = []string{
	"admin", "administrator", "login", "auth",
	"dashboard", "control", "console",
	"index.php", "login.php", "auth.php", "session",
	"upload", "export", "import", "backup",
	"config", "setup", "install", "upgrade",
	"/cgi-bin/", "/boaform/", "/formlogin", "/login.cgi",
}

var mediumKeywords = []string{
	"test", "debug", "phpinfo", "info.php",
	"wp-admin", "wp-login", "joomla/administrator",
	"cgi-bin/test.cgi", "api/", "v1/", "v2/",
}

const pingMarker = "ping?ip="

// BucketPath assigns the coarse path threat bucket. Rules are checked in
// priority order against the lowercased path and the first hit wins.
func BucketPath(path string) detection.Severity {
	p := strings.ToLower(path)

	switch {
	case containsAny(p, commandInjectionIndicators), containsAny(p, criticalMarkers):
		return detection.SeverityCritical
	case pingsInternalAddress(p), containsAny(p, highKeywords):
		return detection.SeverityHigh
	case containsAny(p, mediumKeywords):
		return detection.SeverityMedium
	default:
		return detection.SeverityLow
	}
}

// pingsInternalAddress reports whether the path is a ping request whose ip
// parameter names a loopback or private address.
func pingsInternalAddress(p string) bool {
	_, target, ok := strings.Cut(p, pingMarker)
	if !ok {
		return false
	}
	if i := strings.IndexAny(target, "&/ "); i >= 0 {
		target = target[:i]
	}
	if strings.HasPrefix(target, "localhost") {
		return true
	}
	addr, err := netip.ParseAddr(target)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate()
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
