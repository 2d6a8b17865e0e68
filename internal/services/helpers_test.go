package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sitesmith-backend/internal/events"
	"sitesmith-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Version{},
		&models.ConversationEntry{},
		&models.Transaction{},
		&models.GenerationJob{},
		&models.Prompt{},
	))
	return db
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func seedUser(t *testing.T, db *gorm.DB, username string, credits int) *models.User {
	t.Helper()
	user := &models.User{Username: username, Password: "x", Role: models.RoleUser, Credits: credits, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedProject(t *testing.T, db *gorm.DB, userID uint, code string) *models.Project {
	t.Helper()
	project := &models.Project{Name: "site", InitialPrompt: "a site", UserID: userID}
	require.NoError(t, db.Create(project).Error)
	if code != "" {
		v, err := NewVersionStore(db).Commit(context.Background(), project.ID, code, VersionDescriptionInitial, nil)
		require.NoError(t, err)
		project.CurrentCode = &v.Code
		project.CurrentVersionIndex = v.ID
	}
	return project
}

func creditsOf(t *testing.T, db *gorm.DB, userID uint) int {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, userID).Error)
	return user.Credits
}

// The hook on each fake runs inside the call, before it returns.
type fakeEnhancer struct {
	out   string
	err   error
	hook  func()
	calls []string
}

func (f *fakeEnhancer) Enhance(_ context.Context, raw string, _ Mode) (string, error) {
	f.calls = append(f.calls, raw)
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return "", f.err
	}
	if f.out != "" {
		return f.out, nil
	}
	return "enhanced: " + raw, nil
}

type fakeGenerator struct {
	out      string
	err      error
	hook     func()
	existing []*string
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, existing *string) (string, error) {
	f.existing = append(f.existing, existing)
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeSitePublisher struct {
	published   map[string]string
	unpublished []string
	err         error
}

func (f *fakeSitePublisher) Publish(_ context.Context, projectID, code string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.published == nil {
		f.published = map[string]string{}
	}
	f.published[projectID] = code
	return "https://cdn.example.com/sites/" + projectID + "/index.html", nil
}

func (f *fakeSitePublisher) Unpublish(_ context.Context, projectID string) error {
	f.unpublished = append(f.unpublished, projectID)
	return f.err
}

type harness struct {
	db           *gorm.DB
	mr           *miniredis.Miniredis
	rdb          *redis.Client
	ledger       *CreditLedger
	projects     *ProjectService
	versions     *VersionStore
	conversation *ConversationLog
	locker       *ProjectLocker
	queue        *JobQueue
	enhancer     *fakeEnhancer
	generator    *fakeGenerator
	events       *recordingPublisher
	site         *fakeSitePublisher
	orchestrator *RevisionOrchestrator
}

const validDocument = `<!DOCTYPE html><html><head><title>Shop</title><script src="https://cdn.jsdelivr.net/npm/@tailwindcss/browser@4"></script></head><body></body></html>`

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := setupTestDB(t)
	mr, rdb := setupTestRedis(t)
	log := zap.NewNop()

	h := &harness{
		db:           db,
		mr:           mr,
		rdb:          rdb,
		ledger:       NewCreditLedger(db, rdb, testSecret, log),
		versions:     NewVersionStore(db),
		conversation: NewConversationLog(db),
		locker:       NewProjectLocker(rdb, time.Minute, log),
		queue:        NewJobQueue(rdb),
		enhancer:     &fakeEnhancer{},
		generator:    &fakeGenerator{out: "```html\n" + validDocument + "\n```"},
		events:       &recordingPublisher{},
		site:         &fakeSitePublisher{},
	}
	h.projects = NewProjectService(db, h.site, h.events, log)
	h.orchestrator = NewRevisionOrchestrator(OrchestratorDeps{
		DB:           db,
		Ledger:       h.ledger,
		Projects:     h.projects,
		Versions:     h.versions,
		Conversation: h.conversation,
		Enhancer:     h.enhancer,
		Generator:    h.generator,
		Locker:       h.locker,
		Queue:        h.queue,
		Events:       h.events,
		Cost:         5,
	}, log)
	return h
}

var errBackend = errors.New("backend unavailable")
