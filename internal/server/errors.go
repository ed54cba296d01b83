package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	tokenservice "capturehub/backend/internal/apitoken/service"
	authdomain "capturehub/backend/internal/auth/domain"
	membershipdomain "capturehub/backend/internal/membership/domain"
	sessiondomain "capturehub/backend/internal/session/domain"
)

type apiError struct {
	status int
	code   string
}

var errorTable = []struct {
	err error
	apiError
}{
	{membershipdomain.ErrNotMember, apiError{http.StatusNotFound, "not_member"}},
	{membershipdomain.ErrCannotLeavePersonalOrg, apiError{http.StatusBadRequest, "cannot_leave_personal_org"}},
	{membershipdomain.ErrCannotRemoveSelf, apiError{http.StatusBadRequest, "cannot_remove_self"}},
	{membershipdomain.ErrLastAdmin, apiError{http.StatusConflict, "last_admin"}},
	{membershipdomain.ErrInsufficientRole, apiError{http.StatusForbidden, "insufficient_role"}},
	{membershipdomain.ErrAlreadyMember, apiError{http.StatusConflict, "already_member"}},
	{membershipdomain.ErrInvalidRole, apiError{http.StatusBadRequest, "invalid_role"}},
	{tokenservice.ErrNameRequired, apiError{http.StatusBadRequest, "name_required"}},
	{tokenservice.ErrTokenNotFound, apiError{http.StatusNotFound, "token_not_found"}},
	{sessiondomain.ErrSessionNotFound, apiError{http.StatusUnauthorized, "invalid_session"}},
	{sessiondomain.ErrSessionExpired, apiError{http.StatusUnauthorized, "invalid_session"}},
}

// writeError maps err to a status and a JSON body. Authorization errors keep their message;
// storage and unknown errors get a generic one and are logged.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	if u, ok := authdomain.AsUnauthorized(err); ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": string(u.Reason), "error_description": u.Reason.Message()})
		return
	}
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			c.AbortWithStatusJSON(e.status, gin.H{"error": e.code, "error_description": e.err.Error()})
			return
		}
	}
	if authdomain.IsStorageError(err) {
		logger.Error("storage error", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		logger.Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
}
