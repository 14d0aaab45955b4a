package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/handout-api/internal/middleware"
	"github.com/noah-isme/handout-api/internal/service"
	"github.com/noah-isme/handout-api/internal/tagtree"
	"github.com/noah-isme/handout-api/internal/utils"
)

// tagTreeQueryKey carries the JSON or YAML tag tree of a student dashboard request.
const tagTreeQueryKey = "tag-tree"

// DashboardHandler exposes student statistics and instructor progress views.
type DashboardHandler struct {
	stats    service.StudentStatsService
	progress service.ProgressService
	logger   zerolog.Logger
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(stats service.StudentStatsService, progress service.ProgressService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		stats:    stats,
		progress: progress,
		logger:   logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register binds the dashboard routes.
func (h *DashboardHandler) Register(router fiber.Router) {
	authenticated := middleware.AuthOptions{RequireUser: true}
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Get("/dashboard/:course/students/:student", middleware.WithAuth(h.studentStats, authenticated))
	router.Get("/dashboard/:course/progress", middleware.WithAuth(h.studentsProgress, staff))
	router.Get("/dashboard/:course/weeks", middleware.WithAuth(h.weeks, authenticated))
	router.Get("/dashboard/:course/weeks/:week/students/:student", middleware.WithAuth(h.studentWeek, authenticated))
	router.Get("/dashboard/:course/weeks/:week/histogram", middleware.WithAuth(h.histogram, staff))
}

func (h *DashboardHandler) studentStats(c *fiber.Ctx) error {
	studentID, err := strconv.ParseUint(c.Params("student"), 10, 64)
	if err != nil || studentID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	tree, err := tagtree.Parse([]byte(c.Query(tagTreeQueryKey)))
	if err != nil {
		return handleError(c, h.logger, err, "failed to parse tag tree")
	}

	dashboard, cacheHit, err := h.stats.GetDashboard(requestContext(c), actorFromContext(c), uint(studentID), pathParam(c, "course"), tree)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load student stats")
	}

	return utils.OK(c, dashboard, "student stats retrieved", fiber.Map{"cache_hit": cacheHit})
}

func (h *DashboardHandler) studentsProgress(c *fiber.Ctx) error {
	table, err := h.progress.StudentsProgress(requestContext(c), pathParam(c, "course"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load progress")
	}
	return utils.SendSuccess(c, "progress retrieved", table)
}

func (h *DashboardHandler) weeks(c *fiber.Ctx) error {
	weeks, err := h.progress.Weeks(requestContext(c), pathParam(c, "course"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load weeks")
	}
	return utils.SendSuccess(c, "weeks retrieved", weeks)
}

func (h *DashboardHandler) studentWeek(c *fiber.Ctx) error {
	metrics, err := h.progress.StudentWeek(requestContext(c), actorFromContext(c), pathParam(c, "course"), pathParam(c, "week"), pathParam(c, "student"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load weekly metrics")
	}
	return utils.SendSuccess(c, "weekly metrics retrieved", metrics)
}

func (h *DashboardHandler) histogram(c *fiber.Ctx) error {
	histogram, err := h.progress.WeeklyHistogram(requestContext(c), pathParam(c, "course"), pathParam(c, "week"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load histogram")
	}
	return utils.SendSuccess(c, "histogram retrieved", histogram)
}
