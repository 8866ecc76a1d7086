package routes

import (
	"github.com/gin-gonic/gin"

	"passguard/internal/handlers"
	"passguard/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	verifyHandler *handlers.VerifyHandler,
	passwordHandler *handlers.PasswordHandler,
) *gin.Engine {

	// ---- public
	r.POST("/register", userHandler.Register)
	r.POST("/register/confirm", verifyHandler.ConfirmUser)
	r.POST("/register/resend", verifyHandler.ResendUser)

	r.POST("/login", authHandler.Login)
	r.POST("/login/confirm", authHandler.ConfirmLogin)
	r.POST("/login/resend", authHandler.ResendLogin)

	r.POST("/password/forgot", passwordHandler.Forgot)
	r.POST("/password/reset", passwordHandler.Reset)

	// ---- protected
	r.Use(middleware.AuthMiddleware())
	r.GET("/me", authHandler.Me)

	return r
}
