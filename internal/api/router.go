package api

import (
	"net/http"
	"time"

	"sitesmith-backend/config"
	_ "sitesmith-backend/docs"
	adminPrompt "sitesmith-backend/internal/api/v1/admin/prompt"
	adminTransaction "sitesmith-backend/internal/api/v1/admin/transaction"
	adminUser "sitesmith-backend/internal/api/v1/admin/user"
	"sitesmith-backend/internal/api/v1/auth"
	"sitesmith-backend/internal/api/v1/project"
	userRoutes "sitesmith-backend/internal/api/v1/user"
	"sitesmith-backend/internal/middleware"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Deps is everything the HTTP layer needs. Events may be nil, which turns
// the websocket endpoint off.
type Deps struct {
	Config       *config.Config
	Log          *zap.Logger
	Tokens       *utils.TokenManager
	Denylist     *services.TokenDenylist
	Users        *services.UserService
	Auth         *services.AuthService
	Ledger       *services.CreditLedger
	Projects     *services.ProjectService
	Orchestrator *services.RevisionOrchestrator
	Prompts      *services.PromptService
	Transactions *services.TransactionService
	Events       project.EventSource
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(d.Log), gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           5 * time.Minute,
	}))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, utils.NewSuccessResponse("ok", nil))
	})

	authMiddleware := middleware.Auth(d.Tokens, d.Denylist, d.Users)

	var stream *project.Stream
	if d.Events != nil {
		stream = project.NewStream(d.Projects, d.Events, d.Config.CORSOrigins, d.Log)
	}

	v1 := router.Group("/api/v1")
	{
		auth.NewHandler(d.Auth, d.Tokens, d.Denylist, d.Log).RegisterRoutes(v1, authMiddleware)
		userRoutes.NewHandler(d.Ledger, d.Projects, d.Orchestrator, d.Tokens, d.Log).RegisterRoutes(v1, authMiddleware)
		project.NewHandler(d.Projects, d.Orchestrator, stream, d.Log).RegisterRoutes(v1, authMiddleware)

		admin := v1.Group("/admin", authMiddleware, middleware.AdminAuth(d.Log))
		{
			adminUser.NewHandler(d.Users, d.Ledger, d.Log).RegisterRoutes(admin)
			adminTransaction.NewHandler(d.Transactions, d.Config.LedgerHashSecret, d.Log).RegisterRoutes(admin)
			adminPrompt.NewHandler(d.Prompts, d.Log).RegisterRoutes(admin)
		}
	}

	return router
}
