package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mlukasik/shelfkeeper/internal/auth"
)

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	LoggedIn  bool   // Whether user is logged in
	Username  string // Current user's username (empty if not logged in)
	IsStaff   bool   // Whether the logged-in user is staff
	CSRFToken string // CSRF token for forms
}

// AuthContextMiddleware injects authentication data into Gin context for templates.
// Templates can access auth data via .Auth in the template data.
func AuthContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authData := AuthTemplateData{
			CSRFToken: auth.GetCSRFToken(c),
		}

		if userID := auth.GetUserID(c); userID != 0 {
			authData.LoggedIn = true
			authData.Username = auth.GetUsername(c)
			authData.IsStaff = auth.IsStaff(c)
		}

		c.Set("auth_template_data", authData)
		c.Next()
	}
}

// GetAuthTemplateData retrieves auth data from context for use in templates.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get("auth_template_data"); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}
