package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/handout-api/internal/middleware"
	"github.com/noah-isme/handout-api/internal/service"
)

const liveFeedCourseLocal = "live_feed_course"

// LiveFeedHandler streams a course's submissions to instructors over websocket.
type LiveFeedHandler struct {
	feed         service.LiveFeedService
	pingInterval time.Duration
	logger       zerolog.Logger
}

// NewLiveFeedHandler creates a live feed handler. A non-positive pingInterval defaults
// to 30 seconds.
func NewLiveFeedHandler(feed service.LiveFeedService, pingInterval time.Duration, logger zerolog.Logger) *LiveFeedHandler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &LiveFeedHandler{
		feed:         feed,
		pingInterval: pingInterval,
		logger:       logger.With().Str("component", "live_feed_handler").Logger(),
	}
}

// Register binds the websocket route.
func (h *LiveFeedHandler) Register(router fiber.Router) {
	router.Get("/dashboard/:course/live",
		middleware.RequireStaff(),
		h.upgrade,
		websocket.New(h.stream),
	)
}

func (h *LiveFeedHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(liveFeedCourseLocal, pathParam(c, "course"))
	return c.Next()
}

func (h *LiveFeedHandler) stream(conn *websocket.Conn) {
	course, _ := conn.Locals(liveFeedCourseLocal).(string)
	if course == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "course required"))
		_ = conn.Close()
		return
	}

	events, cancel := h.feed.Subscribe(course)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Info().Str("course", course).Msg("live feed connected")
	defer h.logger.Info().Str("course", course).Msg("live feed disconnected")

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug().Err(err).Msg("live feed write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				h.logger.Debug().Err(err).Msg("live feed ping failed")
				return
			}
		case <-closed:
			return
		}
	}
}
