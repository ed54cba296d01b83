package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	tokendomain "capturehub/backend/internal/apitoken/domain"
	"capturehub/backend/internal/auth"
	authdomain "capturehub/backend/internal/auth/domain"
	healthhandler "capturehub/backend/internal/health/handler"
	membershipdomain "capturehub/backend/internal/membership/domain"
	membershipservice "capturehub/backend/internal/membership/service"
	"capturehub/backend/internal/platform/rbac"
)

// SessionAPI is the part of the session service the HTTP API drives.
type SessionAPI interface {
	Logout(ctx context.Context, id string) error
}

// MembershipAPI is the part of the membership service the HTTP API drives.
type MembershipAPI interface {
	ListOrganizations(ctx context.Context, userID string) ([]membershipservice.OrganizationMembership, error)
	SwitchOrganization(ctx context.Context, sessionID, userID, targetOrgID string) (authdomain.AuthContext, error)
	LeaveOrganization(ctx context.Context, userID, orgID string) error
	RemoveMember(ctx context.Context, actorUserID, orgID, targetUserID string) error
	AddMember(ctx context.Context, actorUserID, orgID, targetUserID string, role membershipdomain.Role) (*membershipdomain.Membership, error)
}

// TokenAPI is the part of the token service the HTTP API drives.
type TokenAPI interface {
	Issue(ctx context.Context, userID, orgID, name string) (string, *tokendomain.Token, error)
	List(ctx context.Context, userID string) ([]*tokendomain.Token, error)
	Revoke(ctx context.Context, userID, tokenID string) error
}

// HTTPDeps holds what the HTTP API needs. All fields except Health and Logger are required.
type HTTPDeps struct {
	Authenticator auth.Authenticator
	Sessions      SessionAPI
	Memberships   MembershipAPI
	// MembershipLookup resolves the caller's role for /v1/me.
	MembershipLookup rbac.OrgMembershipGetter
	Tokens           TokenAPI
	Health           *healthhandler.Server
	CookieName       string
	CookieSecure     bool
	ServiceName      string
	Logger           *zap.Logger
}

type httpAPI struct {
	deps HTTPDeps
	log  *zap.Logger
}

// NewHTTPHandler returns the gin engine serving the public health endpoints and the authenticated /v1 API.
func NewHTTPHandler(deps HTTPDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Health == nil {
		deps.Health = healthhandler.NewServer(nil)
	}
	api := &httpAPI{deps: deps, log: deps.Logger}

	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(deps.ServiceName), RequestLogger(deps.Logger), ClientIP())
	r.GET("/healthz", api.healthz)
	r.GET("/readyz", api.readyz)

	v1 := r.Group("/v1", auth.Middleware(deps.Authenticator, deps.CookieName))
	v1.GET("/me", api.me)
	v1.POST("/auth/logout", api.logout)
	v1.GET("/organizations", api.listOrganizations)
	v1.POST("/organizations/:orgID/switch", api.switchOrganization)
	v1.DELETE("/organizations/:orgID/membership", api.leaveOrganization)
	v1.POST("/organizations/:orgID/members", api.addMember)
	v1.DELETE("/organizations/:orgID/members/:userID", api.removeMember)
	v1.GET("/tokens", api.listTokens)
	v1.POST("/tokens", api.issueToken)
	v1.DELETE("/tokens/:tokenID", api.revokeToken)
	return r
}

func (a *httpAPI) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *httpAPI) readyz(c *gin.Context) {
	if err := a.deps.Health.Ready(c.Request.Context()); err != nil {
		a.log.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *httpAPI) me(c *gin.Context) {
	ac, m, err := rbac.RequireOrgMember(c.Request.Context(), a.deps.MembershipLookup)
	if err != nil {
		writeError(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":         ac.UserID,
		"org_id":          ac.OrgID,
		"role":            string(m.Role),
		"is_personal_org": m.IsPersonalOrg,
		"auth_method":     string(ac.Method),
	})
}

func (a *httpAPI) logout(c *gin.Context) {
	ac, _ := auth.GetAuthContext(c)
	if ac.SessionID != "" {
		if err := a.deps.Sessions.Logout(c.Request.Context(), ac.SessionID); err != nil {
			writeError(c, a.log, err)
			return
		}
	}
	auth.ClearSessionCookie(c.Writer, a.deps.CookieName, a.deps.CookieSecure)
	c.Status(http.StatusNoContent)
}

type organizationResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	IsPersonalOrg bool   `json:"is_personal_org"`
	Current       bool   `json:"current"`
}

func (a *httpAPI) listOrganizations(c *gin.Context) {
	ac, _ := auth.GetAuthContext(c)
	list, err := a.deps.Memberships.ListOrganizations(c.Request.Context(), ac.UserID)
	if err != nil {
		writeError(c, a.log, err)
		return
	}
	out := make([]organizationResponse, 0, len(list))
	for _, om := range list {
		out = append(out, organizationResponse{
			ID:            om.Org.ID,
			Name:          om.Org.Name,
			Role:          string(om.Role),
			IsPersonalOrg: om.IsPersonalOrg,
			Current:       om.Org.ID == ac.OrgID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"organizations": out})
}

func (a *httpAPI) switchOrganization(c *gin.Context) {
	ac, _ := auth.GetAuthContext(c)
	if ac.Method != auth.MethodSession {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":             "session_required",
			"error_description": "API tokens are bound to one organization; switching requires a session.",
		})
		return
	}
	next, err := a.deps.Memberships.SwitchOrganization(c.Request.Context(), ac.SessionID, ac.UserID, c.Param("orgID"))
	if err != nil {
		writeError(c, a.log, err)
		return
	}
	auth.SetAuthContext(c, &next)
	c.JSON(http.StatusOK, gin.H{"org_id": next.OrgID})
}

// requireTokenScope rejects token callers acting on an organization other than the token's.
func requireTokenScope(c *gin.Context, ac *auth.AuthContext, orgID string) bool {
	if ac.Method == auth.MethodToken && orgID != ac.OrgID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":             "token_scope",
			"error_description": "API tokens can only act on the organization they were issued for.",
		})
		return false
	}
	return true
}

func (a *httpAPI) leaveOrganization(c *gin.Context) {
	ac, _ := auth.GetAuthContext(c)
	if !requireTokenScope(c, ac, c.Param("orgID")) {
		return
	}
	if err := a.deps.Memberships.LeaveOrganization(c.Request.Context(), ac.UserID, c.Param("orgID")); err != nil {
		writeError(c, a.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

func (a *httpAPI) addMember(c *gin.Context) {
	ac, _ := auth.GetAuthContext(c)
	if !requireTokenScope(c, ac, c.Param("orgID")) {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "user_id and role are required."})
		return
	}
	m, err := a.deps.Memberships.AddMember(c.Request.Context(), ac.UserID, c.Param("orgID"), req.UserID, membershipdomain.Role(req.Role))
	if err != nil {
		writeError(c, a.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":        m.ID,
		"user_id":   m.UserID,
		"org_id":    m.OrgID,
		"role":      string(m.Role),
		"joined_at": m.JoinedAt.Format(time.RFC3339),
	})
}

func (a *httpAPI) removeMember(c *gin.Context) {
	ac, _ := auth.GetAuthContext(c)
	if !requireTokenScope(c, ac, c.Param("orgID")) {
		return
	}
	if err := a.deps.Memberships.RemoveMember(c.Request.Context(), ac.UserID, c.Param("orgID"), c.Param("userID")); err != nil {
		writeError(c, a.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type tokenResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	OrgID      string     `json:"org_id"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func toTokenResponse(t *tokendomain.Token) tokenResponse {
	return tokenResponse{ID: t.ID, Name: t.Name, OrgID: t.OrgID, CreatedAt: t.CreatedAt, LastUsedAt: t.LastUsedAt}
}

func (a *httpAPI) listTokens(c *gin.Context) {
	ac, _ := auth.GetAuthContext(c)
	list, err := a.deps.Tokens.List(c.Request.Context(), ac.UserID)
	if err != nil {
		writeError(c, a.log, err)
		return
	}
	out := make([]tokenResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTokenResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{"tokens": out})
}

type issueTokenRequest struct {
	Name string `json:"name"`
}

func (a *httpAPI) issueToken(c *gin.Context) {
	ac, _ := auth.GetAuthContext(c)
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Request body must be JSON."})
		return
	}
	plaintext, tok, err := a.deps.Tokens.Issue(c.Request.Context(), ac.UserID, ac.OrgID, req.Name)
	if err != nil {
		writeError(c, a.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": plaintext, "api_token": toTokenResponse(tok)})
}

func (a *httpAPI) revokeToken(c *gin.Context) {
	ac, _ := auth.GetAuthContext(c)
	if err := a.deps.Tokens.Revoke(c.Request.Context(), ac.UserID, c.Param("tokenID")); err != nil {
		writeError(c, a.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
