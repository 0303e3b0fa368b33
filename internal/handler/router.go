package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hemline/internal/metrics"
	"github.com/xxxsen/hemline/internal/middleware"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Accounts      *AccountHandler
	Waitlist      *WaitlistHandler
	Files         *FileHandler
	Clients       *ClientHandler
	Orders        *OrderHandler
	Gallery       *GalleryHandler
	Folders       *FolderHandler
	Health        *HealthHandler
	Authenticator middleware.Authenticator
	AdminKeyHash  string
	RateWindow    time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	limited := middleware.RateLimit(deps.RateWindow, handleError)
	requireAuth := middleware.Auth(deps.Authenticator, handleError)

	authGroup := api.Group("/auth")
	authGroup.POST("/request_magic_link", limited, deps.Auth.RequestMagicLink)
	authGroup.POST("/verify_code", limited, deps.Auth.VerifyCode)
	authGroup.GET("/verify", limited, deps.Auth.VerifyToken)
	authGroup.POST("/refresh", deps.Auth.Refresh)
	authGroup.GET("/profile", requireAuth, deps.Auth.Profile)
	authGroup.DELETE("/logout", requireAuth, deps.Auth.Logout)

	users := api.Group("/users", requireAuth)
	users.PUT("/profile", deps.Users.UpdateProfile)
	users.PATCH("/profile", deps.Users.UpdateProfile)
	users.PUT("/business_image", deps.Users.UpdateBusinessImage)
	users.PATCH("/business_image", deps.Users.UpdateBusinessImage)

	account := api.Group("/account", requireAuth)
	account.POST("/deletion", deps.Accounts.RequestDeletion)
	account.DELETE("/deletion", deps.Accounts.CancelDeletion)

	active := middleware.ActiveAccount(handleError)

	clients := api.Group("/clients", requireAuth, active)
	clients.GET("", deps.Clients.List)
	clients.POST("", deps.Clients.Create)
	clients.DELETE("/bulk_delete", deps.Clients.BulkDelete)
	clients.GET("/:id", deps.Clients.Get)
	clients.PUT("/:id", deps.Clients.Update)
	clients.PATCH("/:id", deps.Clients.Update)
	clients.POST("/:id/orders", deps.Clients.CreateOrders)

	orders := api.Group("/orders", requireAuth, active)
	orders.GET("", deps.Orders.List)
	orders.POST("", deps.Orders.Create)
	orders.DELETE("/bulk_delete", deps.Orders.BulkDelete)
	orders.GET("/:id", deps.Orders.Get)
	orders.PATCH("/:id", deps.Orders.Update)
	orders.PATCH("/:id/mark_done", deps.Orders.MarkDone)
	orders.PATCH("/:id/mark_pending", deps.Orders.MarkPending)
	orders.DELETE("/:id", deps.Orders.Delete)

	gallery := api.Group("/gallery", requireAuth, active)
	gallery.GET("/galleries", deps.Gallery.List)
	gallery.POST("/galleries/upload", deps.Gallery.Upload)
	gallery.DELETE("/galleries", deps.Gallery.BulkDelete)
	gallery.GET("/galleries/:id", deps.Gallery.Get)
	gallery.PUT("/galleries/:id", deps.Gallery.Update)
	gallery.PATCH("/galleries/:id", deps.Gallery.Update)
	gallery.DELETE("/galleries/:id", deps.Gallery.Delete)

	gallery.GET("/folders", deps.Folders.List)
	gallery.POST("/folders", deps.Folders.Create)
	gallery.GET("/folders/:id", deps.Folders.Get)
	gallery.PUT("/folders/:id", deps.Folders.Update)
	gallery.PATCH("/folders/:id", deps.Folders.Update)
	gallery.DELETE("/folders/:id", deps.Folders.Delete)
	gallery.POST("/folders/:id/add_image", deps.Folders.AddImages)
	gallery.DELETE("/folders/:id/remove_images", deps.Folders.RemoveImages)
	gallery.PATCH("/folders/:id/set_cover_image", deps.Folders.SetCover)
	gallery.POST("/folders/:id/share", limited, deps.Folders.Share)
	gallery.DELETE("/folders/:id/share", deps.Folders.Unshare)

	public := api.Group("/public")
	public.GET("/folders/:public_id", deps.Folders.PublicShow)
	public.GET("/folders/:public_id/images", deps.Folders.PublicImages)

	api.POST("/admin/deletions/sweep", middleware.AdminKey(deps.AdminKeyHash, handleError), deps.Accounts.SweepDeletions)

	api.POST("/waitlist", limited, deps.Waitlist.Join)
	api.GET("/files/:key", deps.Files.Get)
	api.GET("/healthz", deps.Health.Check)
	api.GET("/metrics", gin.WrapH(metrics.Handler()))
}
