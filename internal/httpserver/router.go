package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/wingx/dashboard/internal/middleware/auth"
	"github.com/wingx/dashboard/internal/middleware/csrf"
	"github.com/wingx/dashboard/internal/models"
)

type Deps struct {
	AuthHandler         *AuthHTTP
	ShellHandler        *ShellHTTP
	NotifyHandler       *NotificationsHTTP
	EventsHandler       *EventsHTTP
	VerificationHandler *VerificationHTTP
	StoreHandler        *StoreHTTP

	Auth *authmw.SessionAuth
	CSRF csrf.Config

	// Ready reports whether the backing stores answer. Nil means always ready.
	Ready func(c echo.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
			}
		}
		return c.NoContent(http.StatusOK)
	})

	protect := csrf.Middleware(d.CSRF)
	payments := authmw.RequireRole(models.PaymentRoles...)

	auth := e.Group("/api/v1/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/google", d.AuthHandler.Google)
	auth.POST("/logout", d.AuthHandler.LogOut)
	auth.GET("/me", d.AuthHandler.Me, d.Auth.RequireAuth)

	e.GET("/api/auth/imagekit", d.AuthHandler.ImageKit, d.Auth.RequireAuth, payments)

	e.GET("/api/v1/shell", d.ShellHandler.Get, d.Auth.Optional)

	api := e.Group("/api/v1", d.Auth.RequireAuth)
	api.GET("/events", d.EventsHandler.Stream)

	notifications := api.Group("/notifications", protect)
	notifications.GET("", d.NotifyHandler.Get)
	notifications.POST("/permission", d.NotifyHandler.SetPermission)
	notifications.POST("/clear", d.NotifyHandler.Clear)

	verification := api.Group("/verification", payments, protect)
	verification.GET("/orders", d.VerificationHandler.List)
	verification.GET("/orders/:id/confirmation", d.VerificationHandler.Confirmation)
	verification.POST("/orders/:id/approve", d.VerificationHandler.Approve)
	verification.POST("/orders/:id/reject", d.VerificationHandler.Reject)
	verification.POST("/feed/retry", d.VerificationHandler.Retry)

	store := api.Group("/store", payments, protect)
	store.GET("/products", d.StoreHandler.GetProducts)
	store.GET("/products/search", d.StoreHandler.SearchProducts)
	store.GET("/draft", d.StoreHandler.GetDraft)
	store.PUT("/draft", d.StoreHandler.UpdateDraft)
	store.POST("/draft/category", d.StoreHandler.SelectCategory)
	store.POST("/draft/subcategory", d.StoreHandler.ToggleSubcategory)
	store.POST("/draft/size", d.StoreHandler.ToggleSize)
	store.POST("/draft/images", d.StoreHandler.UploadImage)
	store.DELETE("/draft/images", d.StoreHandler.RemoveImage)
	store.POST("/draft/cover", d.StoreHandler.SetCover)
	store.POST("/draft/publish", d.StoreHandler.Publish)
}
