package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LocalhostOnly middleware - only allow localhost or whitelisted IPs access
type LocalhostOnly struct {
	logger     *logrus.Logger
	allowedIPs []string // allowed IP addresses or CIDR ranges
}

// NewLocalhostOnly creates the localhost access restriction middleware
func NewLocalhostOnly(logger *logrus.Logger, allowedIPs []string) *LocalhostOnly {
	return &LocalhostOnly{
		logger:     logger,
		allowedIPs: allowedIPs,
	}
}

// Restrict rejects requests that do not originate from localhost or a
// whitelisted address.
func (l *LocalhostOnly) Restrict() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		remoteIP, _, _ := net.SplitHostPort(c.Request.RemoteAddr)

		if l.isAllowed(clientIP) || isLocalhost(remoteIP) {
			c.Next()
			return
		}

		l.logger.WithFields(logrus.Fields{
			"client_ip":   clientIP,
			"remote_addr": c.Request.RemoteAddr,
			"path":        c.Request.URL.Path,
			"method":      c.Request.Method,
		}).Warn("Rejected non-local admin request")

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Access restricted to localhost",
		})
	}
}

// isAllowed checks the IP against localhost and the whitelist.
func (l *LocalhostOnly) isAllowed(ip string) bool {
	if isLocalhost(ip) {
		return true
	}
	for _, allowed := range l.allowedIPs {
		allowed = strings.TrimSpace(allowed)
		if allowed == "" {
			continue
		}
		if strings.Contains(allowed, "/") {
			_, cidr, err := net.ParseCIDR(allowed)
			if err == nil && cidr.Contains(net.ParseIP(ip)) {
				return true
			}
			continue
		}
		if allowed == ip {
			return true
		}
	}
	return false
}

// isLocalhost reports whether the IP is a loopback address.
func isLocalhost(ip string) bool {
	if ip == "" {
		return false
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
