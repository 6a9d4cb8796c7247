package middleware

import (
	"risk-register/internal/database"
	"risk-register/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// InjectPrincipal — один раз на запрос резолвит аутентифицированного
// пользователя в (userID, organizationID, role) и кладёт в контекст.
// Движок получает принципала только явным параметром, никаких
// неявных глобалов идентичности.
func InjectPrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uidRaw := sess.Get("user_id"); uidRaw != nil {
			if uid, ok := uidRaw.(uint); ok && uid > 0 {
				var user models.User
				if err := database.DB.First(&user, uid).Error; err == nil {
					c.Set("CurrentUser", user)
				}
			}
		}

		c.Next()
	}
}
