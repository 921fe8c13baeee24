package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/session"
	"github.com/amityadav/marketwatch/internal/token"
)

// SessionKey is the gin context key holding the resolved *session.Session.
const SessionKey = "session"

const (
	// CookieName carries the session token for browser clients.
	CookieName = "mw_session"
	// TokenHeader returns a freshly issued token to API clients.
	TokenHeader = "X-Session-Token"
)

// Sessions resolves the caller's session from a Bearer token or the session
// cookie. A missing, invalid or expired token starts a new session whose
// token is returned in both the header and the cookie. A valid token past half
// its lifetime is replaced the same way, so an active session never outlives
// its token.
func Sessions(sessions *session.Manager, tokens *token.Manager, maxAgeSeconds int, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := extractToken(c); raw != "" {
			if claims, err := tokens.Verify(raw); err == nil {
				if s, ok := sessions.Get(c.Request.Context(), claims.SessionID); ok {
					if tokens.ShouldRenew(claims) {
						if err := issueToken(c, tokens, s.ID, maxAgeSeconds); err != nil {
							log.Warn("Failed to renew session token", logger.String("session_id", s.ID), logger.Error(err))
						}
					}
					c.Set(SessionKey, s)
					c.Next()
					return
				}
			} else {
				log.Debug("Rejected session token", logger.Error(err))
			}
		}

		s := sessions.Create()
		if err := issueToken(c, tokens, s.ID, maxAgeSeconds); err != nil {
			log.Error("Failed to issue session token", logger.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
			return
		}
		c.Set(SessionKey, s)
		c.Next()
	}
}

func issueToken(c *gin.Context, tokens *token.Manager, sessionID string, maxAgeSeconds int) error {
	signed, err := tokens.Issue(sessionID)
	if err != nil {
		return err
	}
	c.Header(TokenHeader, signed)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, signed, maxAgeSeconds, "/", "", false, true)
	return nil
}

func extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}

// GetSession returns the session attached by Sessions.
func GetSession(c *gin.Context) *session.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}
