// Package testutil builds the in-memory stores and service graph used by
// handler tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"sitesmith-backend/internal/database"
	"sitesmith-backend/internal/events"
	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const Secret = "test-secret"

// Document is a minimal page the fake generator returns, fenced the way
// completion backends usually wrap it.
const Document = `<!DOCTYPE html><html><head><title>Test</title></head><body><h1>Hello</h1></body></html>`

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

// Enhancer echoes its input unless Err is set.
type Enhancer struct {
	Err error
}

func (e *Enhancer) Enhance(_ context.Context, raw string, _ services.Mode) (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	return "enhanced: " + raw, nil
}

// Generator returns Out, or Document in a markdown fence when Out is empty.
type Generator struct {
	Out string
	Err error
}

func (g *Generator) Generate(context.Context, string, *string) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	if g.Out != "" {
		return g.Out, nil
	}
	return "```html\n" + Document + "\n```", nil
}

// Recorder keeps every published event.
type Recorder struct {
	mu     sync.Mutex
	Events []events.Event
}

func (r *Recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

// Stack is a fully wired service graph over sqlite and miniredis.
type Stack struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Mini         *miniredis.Miniredis
	Log          *zap.Logger
	Tokens       *utils.TokenManager
	Denylist     *services.TokenDenylist
	Users        *services.UserService
	Auth         *services.AuthService
	Ledger       *services.CreditLedger
	Projects     *services.ProjectService
	Versions     *services.VersionStore
	Prompts      *services.PromptService
	Transactions *services.TransactionService
	Queue        *services.JobQueue
	Orchestrator *services.RevisionOrchestrator
	Worker       *services.GenerationWorker
	Enhancer     *Enhancer
	Generator    *Generator
	Recorder     *Recorder
	Bus          *events.RedisBus
}

// NewStack wires every service. Lifecycle events go both to a Recorder and
// to Redis pub/sub.
func NewStack(t *testing.T) *Stack {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, utils.RegisterValidators())

	db := NewDB(t)
	mr, rdb := NewRedis(t)
	log := zap.NewNop()
	recorder := &Recorder{}
	redisBus := events.NewRedisBus(rdb, log)
	bus := events.Multi{recorder, redisBus}

	s := &Stack{
		DB:        db,
		Redis:     rdb,
		Mini:      mr,
		Log:       log,
		Tokens:    utils.NewTokenManager(Secret, time.Hour),
		Denylist:  services.NewTokenDenylist(rdb),
		Users:     services.NewUserService(db, rdb, log),
		Ledger:    services.NewCreditLedger(db, rdb, Secret, log),
		Versions:  services.NewVersionStore(db),
		Prompts:   services.NewPromptService(db, rdb, log),
		Queue:     services.NewJobQueue(rdb),
		Enhancer:  &Enhancer{},
		Generator: &Generator{},
		Recorder:  recorder,
		Bus:       redisBus,
	}
	s.Auth = services.NewAuthService(db, s.Ledger, s.Tokens, 20, log)
	s.Transactions = services.NewTransactionService(db, Secret)
	s.Projects = services.NewProjectService(db, nil, bus, log)
	s.Orchestrator = services.NewRevisionOrchestrator(services.OrchestratorDeps{
		DB:           db,
		Ledger:       s.Ledger,
		Projects:     s.Projects,
		Versions:     s.Versions,
		Conversation: services.NewConversationLog(db),
		Enhancer:     s.Enhancer,
		Generator:    s.Generator,
		Locker:       services.NewProjectLocker(rdb, time.Minute, log),
		Queue:        s.Queue,
		Events:       bus,
		Cost:         services.DefaultGenerationCost,
	}, log)
	s.Worker = services.NewGenerationWorker(db, s.Queue, s.Orchestrator, 1, log)
	return s
}

// User inserts an active account with the given role and balance.
func (s *Stack) User(t *testing.T, username, role string, credits int) models.User {
	t.Helper()
	u := models.User{Username: username, Password: "x", Role: role, Credits: credits, IsActive: true}
	require.NoError(t, s.DB.Create(&u).Error)
	return u
}

// Token issues a bearer token for u.
func (s *Stack) Token(t *testing.T, u models.User) string {
	t.Helper()
	token, err := s.Tokens.GenerateToken(u.ID, u.Role)
	require.NoError(t, err)
	return token
}

// Project creates a project for u and runs its generation to completion.
func (s *Stack) Project(t *testing.T, u models.User, prompt string) *models.Project {
	t.Helper()
	ctx := context.Background()
	project, job, err := s.Orchestrator.CreateProject(ctx, u.ID, prompt, services.RequestMeta{})
	require.NoError(t, err)
	s.Worker.Process(ctx, job.ID)

	var fresh models.Project
	require.NoError(t, s.DB.First(&fresh, "id = ?", project.ID).Error)
	return &fresh
}
