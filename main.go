package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_uuid "github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"semchat/controller"
	"semchat/model"
	"semchat/platform"
	"semchat/service"
)

// CORSMiddleware ...
// CORS (Cross-Origin Resource Sharing)
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "http://localhost")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, UPDATE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Origin, Authorization, Accept, Client-Security-Token, Accept-Encoding, x-access-token")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			fmt.Println("OPTIONS")
			c.AbortWithStatus(200)
		} else {
			c.Next()
		}
	}
}

// RequestIDMiddleware ...
// Generate a unique ID and attach it to each request for future reference or use
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uuid := _uuid.New()
		c.Writer.Header().Set("X-Request-Id", uuid.String())
		c.Set("requestId", uuid.String())
		c.Next()
	}
}

func LogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		userAgent := c.Request.UserAgent()
		requestId := c.GetString("requestId")

		logrus.Infof(
			" [%s] %d | %v | %s | %s | %s | %s ",
			requestId,
			status,
			latency,
			clientIP,
			method,
			path,
			userAgent,
		)
	}
}

var auth = new(controller.AuthController)

// TokenAuthMiddleware ...
// JWT Authentication middleware attached to each request that needs to be authenitcated to
// validate the access_token in the header
func TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth.TokenValid(c)
		c.Next()
	}
}

func main() {
	fmt.Println("Server started...")

	//Load the .env file
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("failed to load the env file")
	}

	platform.InitFile("./log", "gin")

	r := gin.Default()
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LogMiddleware())

	//init database
	platform.InitDB()
	model.InstallDB()

	platform.InitLLMClient()
	platform.InitEmbeddingConfig()

	store := model.EmbeddingStore{}
	embeddingService := service.NewEmbeddingService(platform.EmbeddingCfg)
	searchService := service.NewSearchService(embeddingService, store)
	backfillService := service.NewBackfillService(embeddingService, store)
	chatService := service.NewChatService(embeddingService, store, os.Getenv("LLM_MODEL"))
	reportService := &service.ReportService{}

	v1 := r.Group("/v1")
	{
		user := new(controller.UserController)
		v1.POST("/user/register", user.Register)
		v1.POST("/user/login", user.Login)

		//Refresh the token
		v1.POST("/token/refresh", auth.Refresh)

		chat := controller.NewChatController(chatService)
		v1.POST("/chat", TokenAuthMiddleware(), chat.SendMessage)
		v1.GET("/conversations", TokenAuthMiddleware(), chat.ListConversations)
		v1.GET("/conversations/:id/messages", TokenAuthMiddleware(), chat.ListMessages)

		search := controller.NewSearchController(searchService, backfillService, platform.EmbeddingCfg.Model)
		v1.POST("/search", TokenAuthMiddleware(), search.Search)
		v1.POST("/embeddings/backfill", TokenAuthMiddleware(), search.Backfill)
		v1.GET("/embeddings/stats", TokenAuthMiddleware(), search.Stats)
	}

	// Nightly sweep fills in embeddings that the fire-and-forget path missed,
	// then mails the coverage report.
	c := cron.New()
	c.AddFunc("17 3 * * *", func() {
		summary, err := backfillService.RunSweep(context.Background())
		if err != nil {
			platform.Logger.Warnf("[cron] backfill sweep error, %s", err)
			return
		}
		if err := reportService.SendCoverageReport(summary); err != nil {
			platform.Logger.Warnf("[cron] coverage report error, %s", err)
		}
	})
	c.Start()

	port := os.Getenv("PORT")
	r.Run(":" + port)
}
