package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// IdentityHeader carries the authenticated user's email, set by the
// upstream auth proxy that terminates the session.
const IdentityHeader = "X-User-Email"

const identityKey = "identity"

// AdminOnly admits only identities from the configured administrator set.
// Membership is checked case-insensitively against the whole set rather
// than against a single hard-coded account.
func AdminOnly(adminEmails []string) gin.HandlerFunc {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			admins[email] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		identity := strings.ToLower(strings.TrimSpace(c.GetHeader(IdentityHeader)))
		if identity == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if _, ok := admins[identity]; !ok {
			logrus.WithField("identity", identity).Warn("AdminOnly: non-admin access attempt")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator access required"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}
