package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phishbowl/go-services/internal/audit"
	"github.com/phishbowl/go-services/internal/config"
	"github.com/phishbowl/go-services/internal/gmail"
	"github.com/phishbowl/go-services/pkg/logger"
)

// GmailHandler exposes the secondary mailbox connection flow: connect URL,
// OAuth callback, on-demand verify, status and disconnect.
type GmailHandler struct {
	svc     *gmail.Service
	origin  string
	mongo   string
	mongoDB string
}

func NewGmailHandler(svc *gmail.Service, cfg *config.Config) *GmailHandler {
	origin := cfg.Google.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return &GmailHandler{
		svc:     svc,
		origin:  origin,
		mongo:   cfg.MongoDB.URI,
		mongoDB: cfg.MongoDB.Database,
	}
}

// Register mounts the authenticated gmail routes under rg.
func (h *GmailHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/gmail")
	g.GET("/connect", h.Connect)
	g.GET("/status", h.Status)
	g.POST("/verify", h.Verify)
	g.POST("/disconnect", h.Disconnect)
}

// RegisterCallback mounts the unauthenticated provider redirect target on the
// root engine. The popup has no Authorization header; the state parameter
// carries the correlation back to the user.
func (h *GmailHandler) RegisterCallback(r *gin.Engine) {
	r.GET("/auth/gmail/callback", h.Callback)
}

// Connect returns the provider authorization URL for the popup flow.
func (h *GmailHandler) Connect(c *gin.Context) {
	sub, _ := claimStrings(c)
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	url, err := h.svc.InitiateConnect(c.Request.Context(), sub)
	if err != nil {
		if errors.Is(err, gmail.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Errorf("gmail connect: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build authorization url"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Status reports connection health. ?live=true refreshes the token and
// re-verifies the mailbox identity against the provider.
func (h *GmailHandler) Status(c *gin.Context) {
	sub, email := claimStrings(c)
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	live := c.Query("live") == "true"
	st, err := h.svc.Status(c.Request.Context(), sub, live)
	if err != nil {
		h.statusError(c, err)
		return
	}
	if live && st.Error != "" {
		h.auditEvent(c, sub, email, "credential_cleared", st.Error)
	}
	c.JSON(http.StatusOK, st)
}

// Verify re-checks the connection. With a code in the body it re-runs the
// code exchange; without one it refreshes and re-validates the stored
// credential.
func (h *GmailHandler) Verify(c *gin.Context) {
	sub, email := claimStrings(c)
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	// body is optional; an empty body means "verify the stored credential"
	_ = c.ShouldBindJSON(&req)

	st, err := h.svc.Verify(c.Request.Context(), sub, req.Code)
	if err != nil {
		h.statusError(c, err)
		return
	}
	if st.Connected {
		h.auditEvent(c, sub, email, "connected", st.Email)
	} else if st.Error != "" {
		h.auditEvent(c, sub, email, "credential_cleared", st.Error)
	}
	c.JSON(http.StatusOK, st)
}

// Disconnect clears the stored credential and best-effort revokes the token.
func (h *GmailHandler) Disconnect(c *gin.Context) {
	sub, email := claimStrings(c)
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	st, err := h.svc.Disconnect(c.Request.Context(), sub)
	if err != nil {
		h.statusError(c, err)
		return
	}
	h.auditEvent(c, sub, email, "disconnected", "")
	c.JSON(http.StatusOK, st)
}

// callbackPage delivers the connection result to the opener window and closes
// the popup. html/template serializes Result as JSON inside the script
// context, so provider-controlled strings cannot break out of the page.
var callbackPage = template.Must(template.New("gmailCallback").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Mailbox connection</title></head>
<body>
<p>You can close this window now.</p>
<script>
(function () {
  var result = {{.Result}};
  if (window.opener) {
    window.opener.postMessage(result, {{.Origin}});
  }
  window.close();
})();
</script>
</body>
</html>`))

// Callback is the provider redirect target. It always renders the postMessage
// page, carrying either a connected result or an error message; raw provider
// error text never reaches the page.
func (h *GmailHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")

	var st *gmail.ConnectionStatus
	switch {
	case c.Query("error") != "":
		st = &gmail.ConnectionStatus{Connected: false, Error: "authorization was declined or failed"}
	case state == "" || code == "":
		st = &gmail.ConnectionStatus{Connected: false, Error: "missing authorization parameters"}
	default:
		var err error
		st, err = h.svc.Callback(c.Request.Context(), state, code)
		if err != nil {
			logger.Errorf("gmail callback: %v", err)
			st = &gmail.ConnectionStatus{Connected: false, Error: "connection failed, please try again"}
		}
	}

	if state != "" {
		if st.Connected {
			h.auditEvent(c, state, "", "connected", st.Email)
		} else if st.Error != "" {
			h.auditEvent(c, state, "", "connect_failed", st.Error)
		}
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := callbackPage.Execute(c.Writer, gin.H{"Result": st, "Origin": h.origin}); err != nil {
		logger.Errorf("gmail callback: rendering page: %v", err)
	}
}

func (h *GmailHandler) statusError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gmail.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, gmail.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "mail provider unavailable"})
	default:
		logger.Errorf("gmail: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// auditEvent appends a credential trail entry; failures are logged only.
func (h *GmailHandler) auditEvent(c *gin.Context, userID, email, action, detail string) {
	ev := &audit.Event{UserID: userID, Email: email, Action: action, Detail: detail}
	if err := audit.Save(c.Request.Context(), h.mongo, h.mongoDB, ev); err != nil {
		logger.Warnf("gmail: audit save failed: %v", err)
	}
}
