package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/chainterm/gatekeeper/core"
	"github.com/chainterm/gatekeeper/ports"
	"github.com/chainterm/gatekeeper/service"
)

// Handlers wires the HTTP surface to the services.
type Handlers struct {
	auth       *service.AuthService
	balance    *service.BalanceService
	links      *service.LinkService
	reconciler *service.Reconciler
	messenger  ports.Messenger
	webhookURL string
}

// NewHandlers creates the handler set. webhookURL is the public
// callback URL registered with the messaging platform.
func NewHandlers(
	auth *service.AuthService,
	balance *service.BalanceService,
	links *service.LinkService,
	reconciler *service.Reconciler,
	messenger ports.Messenger,
	webhookURL string,
) *Handlers {
	return &Handlers{
		auth:       auth,
		balance:    balance,
		links:      links,
		reconciler: reconciler,
		messenger:  messenger,
		webhookURL: webhookURL,
	}
}

// Login verifies a wallet signature and sets the session cookie.
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		Wallet    string `json:"wallet" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, session, err := h.auth.Login(c.Request.Context(), req.Wallet, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidWallet):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet id"})
		case errors.Is(err, core.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		case errors.Is(err, core.ErrInsufficientBalance):
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient balance"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	setSessionCookie(c, token, int(h.auth.SessionTTL().Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"wallet":     session.WalletID,
		"expires_at": session.ExpiresAt,
	})
}

// Session reports the authenticated session.
func (h *Handlers) Session(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wallet":     session.WalletID,
		"expires_at": session.ExpiresAt,
	})
}

// Logout clears the session cookie. Sessions live only in the cookie,
// so clearing it is the whole operation.
func (h *Handlers) Logout(c *gin.Context) {
	clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Balance reports the session wallet's gated-token balance.
func (h *Handlers) Balance(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	balance, err := h.balance.TokenBalance(c.Request.Context(), session.WalletID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch token balance"})
		return
	}

	required, ticker := h.balance.Required()
	c.JSON(http.StatusOK, gin.H{
		"balance":  balance,
		"required": required.String(),
		"ticker":   ticker,
	})
}

// LinkInit starts the linking flow and returns the bot deep link.
func (h *Handlers) LinkInit(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	_, deepLink, err := h.links.BeginLink(c.Request.Context(), session.WalletID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start linking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": deepLink})
}

// LinkStatus reports whether the session wallet is linked and a group
// member.
func (h *Handlers) LinkStatus(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	link, err := h.links.Link(c.Request.Context(), session.WalletID)
	if err != nil {
		if errors.Is(err, core.ErrNotLinked) {
			c.JSON(http.StatusOK, gin.H{"connected": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch link status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":    true,
		"group_member": link.GroupMember,
		"username":     link.PlatformUsername,
	})
}

// LinkInvite issues a fresh invite for an already-linked wallet.
func (h *Handlers) LinkInvite(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	invite, err := h.links.InviteLinked(c.Request.Context(), session.WalletID)
	if err != nil {
		if errors.Is(err, core.ErrNotLinked) {
			c.JSON(http.StatusForbidden, gin.H{"error": "wallet not linked"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create invite"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invite_link": invite.URL,
		"expires_at":  invite.ExpiresAt,
	})
}

// Webhook receives messaging-platform updates. Non-JSON bodies get a
// client error; every recognized-or-ignorable update gets 200 so the
// platform does not redeliver.
func (h *Handlers) Webhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update payload"})
		return
	}

	h.links.HandleUpdate(c.Request.Context(), update)
	c.Status(http.StatusOK)
}

// SetWebhook registers the platform callback URL. Idempotent.
func (h *Handlers) SetWebhook(c *gin.Context) {
	if err := h.messenger.SetWebhook(c.Request.Context(), h.webhookURL); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "webhook setup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "webhook set", "url": h.webhookURL})
}

// DeleteWebhook clears the platform callback URL. Idempotent.
func (h *Handlers) DeleteWebhook(c *gin.Context) {
	if err := h.messenger.DeleteWebhook(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "webhook teardown failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "webhook deleted"})
}

// Reconcile triggers one membership reconciliation pass.
func (h *Handlers) Reconcile(c *gin.Context) {
	report, err := h.reconciler.Reconcile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}
