package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// unprofiledPaths never get pyroscope labels. A trailing "/" marks a prefix.
var unprofiledPaths = []string{"/health", "/swagger/"}

var versionSegment = regexp.MustCompile(`^[vV][0-9]+$`)

// ProfileLabels tags the request goroutine with controller, route, method
// and user_role pyroscope labels. It belongs after the auth middleware so
// the role is set. Extra paths to leave unlabelled may be given.
func ProfileLabels(skip ...string) gin.HandlerFunc {
	skip = append(skip, unprofiledPaths...)
	return func(c *gin.Context) {
		if skipped(c.Request.URL.Path, skip) {
			c.Next()
			return
		}
		route := c.FullPath()
		labels := telemetry.Request(routeController(route), route, c.Request.Method, roleLabel(c))
		labels.Do(c.Request.Context(), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func skipped(path string, skip []string) bool {
	for _, s := range skip {
		if path == s || (strings.HasSuffix(s, "/") && strings.HasPrefix(path, s)) {
			return true
		}
	}
	return false
}

// routeController is the first fixed segment after /api/<version>:
// "/api/v1/admin/products/:id" gives "admin".
func routeController(route string) string {
	for _, seg := range strings.Split(route, "/") {
		switch {
		case seg == "", seg == "api", versionSegment.MatchString(seg):
		case seg[0] == ':' || seg[0] == '*':
		default:
			return seg
		}
	}
	return ""
}
