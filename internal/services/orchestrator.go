package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sitesmith-backend/internal/events"
	"sitesmith-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultGenerationCost = 5

// RequestMeta is copied onto ledger rows for audit.
type RequestMeta struct {
	IPAddress  string
	DeviceInfo string
}

// OrchestratorDeps wires the collaborators of a RevisionOrchestrator.
type OrchestratorDeps struct {
	DB           *gorm.DB
	Ledger       *CreditLedger
	Projects     *ProjectService
	Versions     *VersionStore
	Conversation *ConversationLog
	Enhancer     Enhancer
	Generator    Generator
	Locker       *ProjectLocker
	Queue        *JobQueue
	Events       events.Publisher
	Cost         int
}

// RevisionOrchestrator drives creation, revision, rollback and manual save.
// Once credits are debited every failure is compensated with a refund before
// the error is returned.
type RevisionOrchestrator struct {
	db           *gorm.DB
	ledger       *CreditLedger
	projects     *ProjectService
	versions     *VersionStore
	conversation *ConversationLog
	enhancer     Enhancer
	generator    Generator
	locker       *ProjectLocker
	queue        *JobQueue
	events       events.Publisher
	cost         int
	log          *zap.Logger
}

func NewRevisionOrchestrator(deps OrchestratorDeps, log *zap.Logger) *RevisionOrchestrator {
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Cost <= 0 {
		deps.Cost = DefaultGenerationCost
	}
	return &RevisionOrchestrator{
		db:           deps.DB,
		ledger:       deps.Ledger,
		projects:     deps.Projects,
		versions:     deps.Versions,
		conversation: deps.Conversation,
		enhancer:     deps.Enhancer,
		generator:    deps.Generator,
		locker:       deps.Locker,
		queue:        deps.Queue,
		events:       deps.Events,
		cost:         deps.Cost,
		log:          log,
	}
}

func (o *RevisionOrchestrator) Cost() int {
	return o.cost
}

// CreateProject charges the user, creates the project with its opening turn
// and queues the generation. It returns as soon as the job is queued.
func (o *RevisionOrchestrator) CreateProject(ctx context.Context, userID uint, prompt string, meta RequestMeta) (*models.Project, *models.GenerationJob, error) {
	if userID == 0 {
		return nil, nil, newWorkflowError(StageValidating, ErrUnauthenticated, nil)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, nil, newWorkflowError(StageValidating, ErrInvalidInput, errors.New("please enter a valid prompt"))
	}

	projectID := uuid.New().String()
	charge, err := o.ledger.Debit(ctx, userID, o.cost, ChargeMeta{
		Type:       models.TransactionTypeUserConsume,
		Reason:     "website creation",
		Operator:   systemOperator,
		ProjectID:  projectID,
		IPAddress:  meta.IPAddress,
		DeviceInfo: meta.DeviceInfo,
	})
	if err != nil {
		return nil, nil, newWorkflowError(StageValidating, classify(err, ErrPersistence), err)
	}

	// Debited: nothing below may be cancelled by the caller going away.
	ctx = context.WithoutCancel(ctx)

	project, err := o.projects.create(ctx, projectID, userID, prompt)
	if err != nil {
		return nil, nil, o.compensate(ctx, StagePersisting, err, charge, projectID, userID)
	}

	input, _ := json.Marshal(models.GenerationInput{Prompt: prompt, Mode: string(ModeCreation)})
	job := &models.GenerationJob{
		ProjectID: project.ID,
		UserID:    userID,
		Status:    models.JobStatusPending,
		InputData: datatypes.JSON(input),
		ChargeID:  &charge.ID,
	}
	if err := o.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, nil, o.compensate(ctx, StagePersisting, fmt.Errorf("%w: %w", ErrPersistence, err), charge, projectID, userID)
	}
	if err := o.queue.Enqueue(ctx, job.ID); err != nil {
		o.finishJob(ctx, job, models.JobStatusFailed, err.Error())
		return nil, nil, o.compensate(ctx, StagePersisting, fmt.Errorf("%w: %w", ErrPersistence, err), charge, projectID, userID)
	}

	o.publish(ctx, events.New(events.ProjectCreated, project.ID, userID, map[string]interface{}{
		"job_id": job.ID,
	}))
	o.log.Info("project creation queued",
		zap.String("project_id", project.ID),
		zap.Uint("user_id", userID),
		zap.Uint("job_id", job.ID))
	return project, job, nil
}

// RunCreation performs the enhance, generate and commit steps of a queued
// creation and records the job's outcome. On failure the job's charge is
// refunded. A job already finished elsewhere yields ErrJobFinished untouched.
func (o *RevisionOrchestrator) RunCreation(ctx context.Context, job *models.GenerationJob) error {
	ctx = context.WithoutCancel(ctx)

	charge, err := o.loadCharge(ctx, job)
	if err != nil {
		return o.failJob(ctx, job, o.compensate(ctx, StageDebited, err, nil, job.ProjectID, job.UserID))
	}

	var project models.Project
	if err := o.db.WithContext(ctx).First(&project, "id = ?", job.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrProjectNotFound
		}
		return o.failJob(ctx, job, o.compensate(ctx, StageDebited, err, charge, job.ProjectID, job.UserID))
	}

	release, err := o.locker.Acquire(ctx, project.ID)
	if err != nil {
		return o.failJob(ctx, job, o.compensate(ctx, StageDebited, err, charge, project.ID, job.UserID))
	}
	defer release()

	// Recovery on another instance may have abandoned and refunded the job
	// between the claim and the lock.
	if finished, err := o.jobFinished(ctx, job.ID); err != nil {
		return o.failJob(ctx, job, o.compensate(ctx, StageDebited, err, charge, project.ID, job.UserID))
	} else if finished {
		return ErrJobFinished
	}

	prompt := project.InitialPrompt
	var input models.GenerationInput
	if len(job.InputData) > 0 && json.Unmarshal(job.InputData, &input) == nil && input.Prompt != "" {
		prompt = input.Prompt
	}

	version, err := o.generate(ctx, &project, prompt, ModeCreation, charge)
	if err != nil {
		return o.failJob(ctx, job, err)
	}
	// Still under the lock, so recovery cannot refund a committed job.
	o.finishJob(ctx, job, models.JobStatusCompleted, "")

	o.publish(ctx, events.New(events.ProjectCompleted, project.ID, job.UserID, map[string]interface{}{
		"version_id": version.ID,
	}))
	return nil
}

// Revise applies a change request to an owned project synchronously and
// returns the new version.
func (o *RevisionOrchestrator) Revise(ctx context.Context, userID uint, projectID, message string, meta RequestMeta) (*models.Version, error) {
	if userID == 0 {
		return nil, newWorkflowError(StageValidating, ErrUnauthenticated, nil)
	}
	if strings.TrimSpace(projectID) == "" {
		return nil, newWorkflowError(StageValidating, ErrInvalidInput, errors.New("project id is required"))
	}
	if strings.TrimSpace(message) == "" {
		return nil, newWorkflowError(StageValidating, ErrInvalidInput, errors.New("please enter a valid prompt"))
	}

	if _, err := o.projects.Owned(ctx, userID, projectID); err != nil {
		return nil, newWorkflowError(StageValidating, classify(err, ErrPersistence), err)
	}

	release, err := o.locker.Acquire(ctx, projectID)
	if err != nil {
		return nil, newWorkflowError(StageValidating, classify(err, ErrPersistence), err)
	}
	defer release()

	// Re-read under the lock so the head snapshot is current.
	project, err := o.projects.Owned(ctx, userID, projectID)
	if err != nil {
		return nil, newWorkflowError(StageValidating, classify(err, ErrPersistence), err)
	}

	charge, err := o.ledger.Debit(ctx, userID, o.cost, ChargeMeta{
		Type:       models.TransactionTypeUserConsume,
		Reason:     "website revision",
		Operator:   systemOperator,
		ProjectID:  projectID,
		IPAddress:  meta.IPAddress,
		DeviceInfo: meta.DeviceInfo,
	})
	if err != nil {
		return nil, newWorkflowError(StageValidating, classify(err, ErrPersistence), err)
	}

	ctx = context.WithoutCancel(ctx)

	if _, err := o.conversation.Append(ctx, projectID, models.ConversationRoleUser, message); err != nil {
		return nil, o.compensate(ctx, StageDebited, err, charge, projectID, userID)
	}

	version, err := o.generate(ctx, project, message, ModeRevision, charge)
	if err != nil {
		return nil, err
	}

	o.publish(ctx, events.New(events.ProjectRevised, projectID, userID, map[string]interface{}{
		"version_id": version.ID,
	}))
	return version, nil
}

// generate runs enhance, generate, sanitize and commit for project, writing
// the assistant turns along the way. Failures are compensated against charge.
func (o *RevisionOrchestrator) generate(ctx context.Context, project *models.Project, prompt string, mode Mode, charge *models.Transaction) (*models.Version, error) {
	fail := func(stage Stage, err error) error {
		return o.compensate(ctx, stage, err, charge, project.ID, project.UserID)
	}

	enhanced, err := o.enhancer.Enhance(ctx, prompt, mode)
	if err != nil {
		return nil, fail(StageEnhancing, upstream(err))
	}

	progress := MsgGeneratingWebsite
	if mode == ModeRevision {
		progress = MsgMakingChanges
	}
	for _, content := range []string{enhancedMessage(enhanced), progress} {
		if _, err := o.conversation.Append(ctx, project.ID, models.ConversationRoleAssistant, content); err != nil {
			return nil, fail(StageEnhancing, err)
		}
	}

	var existing *string
	if mode == ModeRevision && project.HasCode() {
		existing = project.CurrentCode
	}
	raw, err := o.generator.Generate(ctx, enhanced, existing)
	if err != nil {
		return nil, fail(StageGenerating, upstream(err))
	}

	code := SanitizeCode(raw)
	if code == "" {
		return nil, fail(StageSanitizing, fmt.Errorf("model returned no code: %w", ErrUpstream))
	}
	report := InspectDocument(code)
	if !report.HasHTMLTag || !report.HasTailwind {
		o.log.Warn("generated document looks incomplete",
			zap.String("project_id", project.ID),
			zap.Bool("html", report.HasHTMLTag),
			zap.Bool("body", report.HasBody),
			zap.Bool("tailwind", report.HasTailwind))
	}

	description := VersionDescriptionInitial
	done := MsgWebsiteCreated
	if mode == ModeRevision {
		description = VersionDescriptionChanges
		done = MsgChangesMade
	}

	expected := project.CurrentVersionIndex
	version, err := o.versions.Commit(ctx, project.ID, code, description, &expected)
	if err != nil {
		return nil, fail(StagePersisting, err)
	}

	// Committed: the result stands even if the closing turn cannot be written.
	if _, err := o.conversation.Append(ctx, project.ID, models.ConversationRoleAssistant, done); err != nil {
		o.log.Error("failed to record completion turn", zap.String("project_id", project.ID), zap.Error(err))
	}
	project.CurrentCode = &code
	project.CurrentVersionIndex = version.ID
	o.projects.syncMirror(ctx, project, code)

	o.log.Info("generation completed",
		zap.String("project_id", project.ID),
		zap.String("version_id", version.ID),
		zap.String("mode", string(mode)),
		zap.String("title", report.Title),
		zap.Int("bytes", len(code)))
	return version, nil
}

// Rollback points the head at an earlier version of an owned project. It
// neither charges nor creates a version.
func (o *RevisionOrchestrator) Rollback(ctx context.Context, userID uint, projectID, versionID string) (*models.Version, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(versionID) == "" {
		return nil, fmt.Errorf("project id and version id are required: %w", ErrInvalidInput)
	}

	project, err := o.projects.Owned(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	release, err := o.locker.Acquire(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer release()

	version, err := o.versions.Get(ctx, projectID, versionID)
	if err != nil {
		return nil, err
	}
	if err := o.versions.SetHead(ctx, projectID, version.ID, version.Code, nil); err != nil {
		return nil, err
	}
	// The head has moved; a missing transcript line does not undo that.
	if _, err := o.conversation.Append(ctx, projectID, models.ConversationRoleAssistant, MsgRolledBack); err != nil {
		o.log.Error("failed to record rollback turn", zap.String("project_id", projectID), zap.Error(err))
	}
	o.projects.syncMirror(ctx, project, version.Code)

	o.publish(ctx, events.New(events.ProjectRolledBack, projectID, userID, map[string]interface{}{
		"version_id": version.ID,
	}))
	o.log.Info("project rolled back", zap.String("project_id", projectID), zap.String("version_id", version.ID))
	return version, nil
}

// Save stores hand-edited code as the head. The head is no longer tied to a
// stored version.
func (o *RevisionOrchestrator) Save(ctx context.Context, userID uint, projectID, code string) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("code is required: %w", ErrInvalidInput)
	}

	project, err := o.projects.Owned(ctx, userID, projectID)
	if err != nil {
		return err
	}
	release, err := o.locker.Acquire(ctx, projectID)
	if err != nil {
		return err
	}
	defer release()

	if err := o.versions.SetHead(ctx, projectID, "", code, nil); err != nil {
		return err
	}
	o.projects.syncMirror(ctx, project, code)
	o.publish(ctx, events.New(events.ProjectSaved, projectID, userID, nil))
	return nil
}

// AbandonCreation fails a job that can no longer run, refunding its charge.
// A job whose project lock is held is still running somewhere and is left
// alone with ErrProjectBusy.
func (o *RevisionOrchestrator) AbandonCreation(ctx context.Context, job *models.GenerationJob, reason string) error {
	ctx = context.WithoutCancel(ctx)
	release, err := o.locker.Acquire(ctx, job.ProjectID)
	if err != nil {
		return err
	}
	defer release()

	if finished, err := o.jobFinished(ctx, job.ID); err != nil {
		return err
	} else if finished {
		return ErrJobFinished
	}

	charge, err := o.loadCharge(ctx, job)
	if err != nil {
		charge = nil
	}
	werr := o.compensate(ctx, StageCompensating, errors.New(reason), charge, job.ProjectID, job.UserID)
	o.finishJob(ctx, job, models.JobStatusFailed, werr.Error())
	return werr
}

func (o *RevisionOrchestrator) loadCharge(ctx context.Context, job *models.GenerationJob) (*models.Transaction, error) {
	if job.ChargeID == nil {
		return nil, fmt.Errorf("job %d has no charge: %w", job.ID, ErrPersistence)
	}
	var charge models.Transaction
	if err := o.db.WithContext(ctx).First(&charge, *job.ChargeID).Error; err != nil {
		return nil, fmt.Errorf("load charge %d: %w: %w", *job.ChargeID, ErrPersistence, err)
	}
	return &charge, nil
}

func (o *RevisionOrchestrator) jobFinished(ctx context.Context, jobID uint) (bool, error) {
	var current models.GenerationJob
	if err := o.db.WithContext(ctx).Select("id", "status").First(&current, jobID).Error; err != nil {
		return false, fmt.Errorf("reload job %d: %w: %w", jobID, ErrPersistence, err)
	}
	return current.Terminal(), nil
}

func (o *RevisionOrchestrator) failJob(ctx context.Context, job *models.GenerationJob, err error) error {
	o.finishJob(ctx, job, models.JobStatusFailed, err.Error())
	return err
}

func (o *RevisionOrchestrator) finishJob(ctx context.Context, job *models.GenerationJob, status models.JobStatus, errorLog string) {
	now := time.Now()
	job.Status = status
	job.ErrorLog = errorLog
	job.FinishedAt = &now
	if err := o.db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
		"status":      status,
		"error_log":   errorLog,
		"finished_at": now,
	}).Error; err != nil {
		o.log.Error("failed to update job status", zap.Uint("job_id", job.ID), zap.Error(err))
	}
}

// compensate refunds charge, records the failure and returns the error the
// caller should surface. The refund is attempted even when the failure is a
// persistence error, and is idempotent per charge.
func (o *RevisionOrchestrator) compensate(ctx context.Context, stage Stage, cause error, charge *models.Transaction, projectID string, userID uint) error {
	kind := classify(cause, ErrPersistence)
	fields := []zap.Field{
		zap.String("stage", string(stage)),
		zap.String("project_id", projectID),
		zap.Uint("user_id", userID),
		zap.Error(cause),
	}

	if charge != nil {
		refund, err := o.ledger.Refund(ctx, charge, fmt.Sprintf("refund: %s failed", stage))
		if err != nil {
			o.log.Error("refund failed, credits need manual correction",
				append(fields, zap.Uint("charge_id", charge.ID), zap.NamedError("refund_error", err))...)
		} else {
			fields = append(fields, zap.Uint("refund_id", refund.ID))
		}
	}
	o.log.Error("generation failed", fields...)

	o.publish(ctx, events.New(events.ProjectFailed, projectID, userID, map[string]interface{}{
		"stage": string(stage),
	}))
	return newWorkflowError(stage, kind, cause)
}

func (o *RevisionOrchestrator) publish(ctx context.Context, event events.Event) {
	if err := o.events.Publish(ctx, event); err != nil {
		o.log.Warn("failed to publish project event",
			zap.String("type", event.Type),
			zap.String("project_id", event.ProjectID),
			zap.Error(err))
	}
}
