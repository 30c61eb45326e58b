package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/focusdeck/internal/dashboard"
	"github.com/p-blackswan/focusdeck/internal/health"
	"github.com/p-blackswan/focusdeck/internal/metrics"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	svc       *dashboard.Service
	checker   *health.Checker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *dashboard.Service, checker *health.Checker, m *metrics.Metrics, logger zerolog.Logger) *Handlers {
	return &Handlers{
		svc:       svc,
		checker:   checker,
		metrics:   m,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}
}

// --- probes ---

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(h.startTime).String(),
	})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())

	ready := true
	for _, s := range results {
		if s == health.StatusDown {
			ready = false
			break
		}
	}

	status := "ready"
	code := fiber.StatusOK
	if !ready {
		status = "not_ready"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{"status": status, "checks": results})
}

// domainError maps dashboard errors onto problem responses. The engine's
// reason codes ride in the problem type so the UI can render why an action
// was blocked.
func (h *Handlers) domainError(c *fiber.Ctx, err error) error {
	var terr *dashboard.TransitionError
	if errors.As(err, &terr) {
		resp := ProblemDetail{
			Type:      string(terr.Code),
			Title:     "Stage Change Rejected",
			Status:    fiber.StatusConflict,
			Detail:    terr.Error(),
			Instance:  c.Path(),
			Conflicts: terr.Conflicts,
		}
		return c.Status(fiber.StatusConflict).JSON(resp)
	}

	var lerr *dashboard.ExecutionLockedError
	if errors.As(err, &lerr) {
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{
			"type":   "execution_locked",
			"title":  "Execution Locked",
			"status": fiber.StatusLocked,
			"detail": lerr.Error(),
			"lock":   lerr.Lock,
		})
	}

	var ierr *dashboard.ImportError
	if errors.As(err, &ierr) {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_import_shape", "Bad Request", ierr.Error())
	}

	switch {
	case errors.Is(err, dashboard.ErrProjectNotFound),
		errors.Is(err, dashboard.ErrTaskNotFound),
		errors.Is(err, dashboard.ErrMilestoneNotFound):
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", err.Error())
	case errors.Is(err, dashboard.ErrConfidenceRange),
		errors.Is(err, dashboard.ErrUnknownField),
		errors.Is(err, dashboard.ErrInvalidEnergy):
		return problemResponse(c, fiber.StatusUnprocessableEntity,
			"invalid_value", "Unprocessable Entity", err.Error())
	}

	h.logger.Error().Err(err).Str("path", c.Path()).Msg("handler error")
	return problemResponse(c, fiber.StatusInternalServerError,
		"internal_error", "Internal Server Error", "An internal error occurred")
}

// --- projects ---

func (h *Handlers) projectView(id string) (ProjectView, error) {
	p, err := h.svc.Project(id)
	if err != nil {
		return ProjectView{}, err
	}
	st, err := h.svc.State(id)
	if err != nil {
		return ProjectView{}, err
	}
	led, err := h.svc.Ledger(id)
	if err != nil {
		return ProjectView{}, err
	}
	lock, err := h.svc.ExecutionLock(id)
	if err != nil {
		return ProjectView{}, err
	}
	if h.metrics != nil {
		outcome := "unlocked"
		if lock.Locked {
			outcome = "locked"
		}
		h.metrics.RecordLockEvaluation(outcome)
	}
	return ProjectView{Project: p, State: st, Ledger: led, Lock: lock}, nil
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	projects := h.svc.Projects()
	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		v, err := h.projectView(p.ID)
		if err != nil {
			return h.domainError(c, err)
		}
		views = append(views, v)
	}
	return c.JSON(views)
}

// GetProject handles GET /api/v1/projects/:id.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	v, err := h.projectView(c.Params("id"))
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(v)
}

// GetLock handles GET /api/v1/projects/:id/lock.
func (h *Handlers) GetLock(c *fiber.Ctx) error {
	lock, err := h.svc.ExecutionLock(c.Params("id"))
	if err != nil {
		return h.domainError(c, err)
	}
	if h.metrics != nil {
		outcome := "unlocked"
		if lock.Locked {
			outcome = "locked"
		}
		h.metrics.RecordLockEvaluation(outcome)
	}
	return c.JSON(lock)
}

// ChangeStage handles POST /api/v1/projects/:id/stage.
func (h *Handlers) ChangeStage(c *fiber.Ctx) error {
	var req StageChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	stage, err := dashboard.ParseStage(req.Stage)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_stage", "Bad Request", err.Error())
	}

	id := c.Params("id")
	if err := h.svc.RequestStageChange(c.Context(), id, stage); err != nil {
		// Only guard refusals count as rejected; lookup and storage
		// failures are not transitions.
		var terr *dashboard.TransitionError
		if h.metrics != nil && errors.As(err, &terr) {
			h.metrics.RecordStageTransition(string(stage), "rejected")
		}
		return h.domainError(c, err)
	}
	if h.metrics != nil {
		h.metrics.RecordStageTransition(string(stage), "accepted")
	}

	v, err := h.projectView(id)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(v)
}

// UpdateState handles PATCH /api/v1/projects/:id/state.
func (h *Handlers) UpdateState(c *fiber.Ctx) error {
	var req StateUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	id := c.Params("id")
	if err := h.svc.UpdateState(c.Context(), id, req.Blockers, req.NextCheckpoint); err != nil {
		return h.domainError(c, err)
	}

	v, err := h.projectView(id)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(v)
}

// UpdateLedger handles PATCH /api/v1/projects/:id/ledger.
func (h *Handlers) UpdateLedger(c *fiber.Ctx) error {
	var req LedgerUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	// Validate the whole payload before touching the ledger; map iteration
	// order must not decide which fields land when one is bad.
	for field := range req.Fields {
		if !dashboard.LedgerField(field).Valid() {
			return h.domainError(c, dashboard.ErrUnknownField)
		}
	}
	if req.ConfidenceSet && req.Confidence != nil && (*req.Confidence < 1 || *req.Confidence > 5) {
		return h.domainError(c, dashboard.ErrConfidenceRange)
	}

	id := c.Params("id")
	for field, value := range req.Fields {
		if err := h.svc.SetLedgerText(c.Context(), id, dashboard.LedgerField(field), value); err != nil {
			return h.domainError(c, err)
		}
	}
	if req.ConfidenceSet {
		if err := h.svc.SetConfidence(c.Context(), id, req.Confidence); err != nil {
			return h.domainError(c, err)
		}
	}

	led, err := h.svc.Ledger(id)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(led)
}

// --- tasks ---

// ListTasks handles GET /api/v1/projects/:id/tasks.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	if _, err := h.svc.Project(c.Params("id")); err != nil {
		return h.domainError(c, err)
	}
	tasks := h.svc.Tasks(c.Params("id"))
	if tasks == nil {
		tasks = []dashboard.Task{}
	}
	return c.JSON(tasks)
}

// CreateTask handles POST /api/v1/projects/:id/tasks.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	var req TaskCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if req.Text == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_text", "Bad Request", "Task text is required")
	}

	task, err := h.svc.AddTask(c.Context(), c.Params("id"), req.Text)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// UpdateTask handles PATCH /api/v1/tasks/:id.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	var req TaskUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	task, err := h.svc.UpdateTask(c.Context(), c.Params("id"), req.Completed, req.NextAction)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(task)
}

// DeleteTask handles DELETE /api/v1/tasks/:id.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	if err := h.svc.DeleteTask(c.Context(), c.Params("id")); err != nil {
		return h.domainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// FocusPrune handles POST /api/v1/tasks/focus-prune.
func (h *Handlers) FocusPrune(c *fiber.Ctx) error {
	removed, err := h.svc.FocusPrune(c.Context())
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(FocusPruneResponse{Removed: removed})
}

// --- logs ---

// ListLogs handles GET /api/v1/projects/:id/logs.
func (h *Handlers) ListLogs(c *fiber.Ctx) error {
	if _, err := h.svc.Project(c.Params("id")); err != nil {
		return h.domainError(c, err)
	}
	logs := h.svc.Logs(c.Params("id"))
	if logs == nil {
		logs = []dashboard.LogEntry{}
	}
	return c.JSON(logs)
}

// CreateLog handles POST /api/v1/projects/:id/logs.
func (h *Handlers) CreateLog(c *fiber.Ctx) error {
	var req LogCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	entry, err := h.svc.AppendLog(c.Context(), c.Params("id"), dashboard.Energy(req.Energy), req.Text)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// Heatmap handles GET /api/v1/logs/heatmap.
func (h *Handlers) Heatmap(c *fiber.Ctx) error {
	days := c.QueryInt("days", 84)
	return c.JSON(h.svc.Heatmap(days))
}

// Streak handles GET /api/v1/logs/streak.
func (h *Handlers) Streak(c *fiber.Ctx) error {
	return c.JSON(StreakResponse{Streak: h.svc.Streak()})
}

// --- milestones ---

// ListMilestones handles GET /api/v1/projects/:id/milestones.
func (h *Handlers) ListMilestones(c *fiber.Ctx) error {
	if _, err := h.svc.Project(c.Params("id")); err != nil {
		return h.domainError(c, err)
	}
	ms := h.svc.Milestones(c.Params("id"))
	if ms == nil {
		ms = []dashboard.Milestone{}
	}
	return c.JSON(ms)
}

// CreateMilestone handles POST /api/v1/projects/:id/milestones.
func (h *Handlers) CreateMilestone(c *fiber.Ctx) error {
	var req MilestoneCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if req.Text == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_text", "Bad Request", "Milestone text is required")
	}

	m, err := h.svc.AddMilestone(c.Context(), c.Params("id"), req.Text)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// ToggleMilestone handles PATCH /api/v1/milestones/:id.
func (h *Handlers) ToggleMilestone(c *fiber.Ctx) error {
	m, err := h.svc.ToggleMilestone(c.Context(), c.Params("id"))
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(m)
}

// DeleteMilestone handles DELETE /api/v1/milestones/:id.
func (h *Handlers) DeleteMilestone(c *fiber.Ctx) error {
	if err := h.svc.DeleteMilestone(c.Context(), c.Params("id")); err != nil {
		return h.domainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- settings, brief, work mode ---

// GetSettings handles GET /api/v1/settings.
func (h *Handlers) GetSettings(c *fiber.Ctx) error {
	return c.JSON(h.svc.Settings())
}

// PutSettings handles PUT /api/v1/settings.
func (h *Handlers) PutSettings(c *fiber.Ctx) error {
	var req SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}

	if err := h.svc.UpdateSettings(c.Context(), req.SelectedProject, dashboard.Energy(req.Energy)); err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(h.svc.Settings())
}

// GetBrief handles GET /api/v1/brief.
func (h *Handlers) GetBrief(c *fiber.Ctx) error {
	return c.JSON(BriefResponse{Brief: h.svc.Brief()})
}

// GenerateBrief handles POST /api/v1/brief.
func (h *Handlers) GenerateBrief(c *fiber.Ctx) error {
	brief, err := h.svc.GenerateBrief(c.Context())
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(BriefResponse{Brief: brief})
}

// ListWorkModeOutputs handles GET /api/v1/workmode/outputs.
func (h *Handlers) ListWorkModeOutputs(c *fiber.Ctx) error {
	outs := h.svc.WorkModeOutputs()
	if outs == nil {
		outs = []dashboard.WorkModeOutput{}
	}
	return c.JSON(outs)
}

// GenerateWorkMode handles POST /api/v1/workmode.
func (h *Handlers) GenerateWorkMode(c *fiber.Ctx) error {
	var req WorkModeRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if !dashboard.ValidWorkMode(req.Mode) {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_mode", "Bad Request", "Unknown work mode: "+req.Mode)
	}

	out, err := h.svc.GenerateWorkMode(c.Context(), req.Mode)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// --- snapshot ---

// Export handles GET /api/v1/export.
func (h *Handlers) Export(c *fiber.Ctx) error {
	return c.JSON(h.svc.Export())
}

// Import handles POST /api/v1/import.
func (h *Handlers) Import(c *fiber.Ctx) error {
	if err := h.svc.Import(c.Context(), c.Body()); err != nil {
		if h.metrics != nil {
			h.metrics.RecordImport("rejected")
		}
		return h.domainError(c, err)
	}
	if h.metrics != nil {
		h.metrics.RecordImport("applied")
	}
	return c.JSON(fiber.Map{"ok": true})
}
