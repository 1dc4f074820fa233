package api

import (
	"Inkstone/internal/api/middleware"
	"Inkstone/internal/pkg/consts"
	"Inkstone/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		mediaGroup := apiGroup.Group("/media")
		{
			authGroup := mediaGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware(), middleware.CheckRoles(consts.RoleWriter, consts.RoleAdmin))
			{
				authGroup.GET("/presign", group.MediaHandler.PresignUpload)
				authGroup.GET("/retrieve", group.MediaHandler.PresignRetrieval)
			}
		}

		postGroup := apiGroup.Group("/post")
		{
			// 读接口无需登录，带 Token 时解析出 UID 供日志与后续个性化使用
			readGroup := postGroup.Group("")
			readGroup.Use(middleware.AuthOptionalMiddleware())
			{
				readGroup.GET("/list", group.PostHandler.ListPosts)
				readGroup.GET("/:slug", group.PostHandler.GetPostBySlug)
			}

			authGroup := postGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				writerGroup := authGroup.Group("")
				writerGroup.Use(middleware.CheckRoles(consts.RoleWriter, consts.RoleAdmin))
				{
					writerGroup.POST("/create", group.PostHandler.CreatePost)
				}

				// 属主或管理员，所有权在 Service 层校验
				authGroup.PUT("/:post_id", group.PostHandler.UpdatePostContent)
				authGroup.DELETE("/:post_id", group.PostHandler.DeletePost)
			}
		}
	}

	return r
}
