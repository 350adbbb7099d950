package handlers

import (
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jjenkins/althingi/internal/service"
	"github.com/jjenkins/althingi/internal/templates"
	"github.com/sirupsen/logrus"
)

// HomeHandler renders the dashboard of the session in the "session" query
// parameter, or of the active session
func HomeHandler(activity *service.ActivityService, runs service.RunRecorder, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		data := templates.DashboardData{}

		number, err := strconv.Atoi(c.Query("session", "0"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid session number")
		}

		// Missing pieces degrade to an emptier page
		if data.Sessions, err = activity.Sessions(ctx); err != nil {
			log.WithError(err).Error("Error listing sessions")
		}
		if data.Session, err = activity.FindSession(ctx, number); err != nil {
			log.WithError(err).Error("Error loading session")
		}
		if number != 0 && data.Session == nil && err == nil {
			return c.Status(fiber.StatusNotFound).SendString("Session not found")
		}

		if data.Session != nil {
			data.Summary, err = activity.Summary(ctx, data.Session, service.SummaryOptions{Now: time.Now()})
			if err != nil {
				log.WithError(err).Error("Error computing summary")
			}
			if data.Parties, err = activity.Parties(ctx); err != nil {
				log.WithError(err).Error("Error loading parties")
			}
		}

		if data.Runs, err = runs.ListRuns(ctx, 10); err != nil {
			log.WithError(err).Error("Error loading runs")
		}

		page := templates.Dashboard(data)
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}

// Register mounts the dashboard and the JSON API on app
func Register(app *fiber.App, activity *service.ActivityService, runs service.RunRecorder, log logrus.FieldLogger) {
	app.Get("/", HomeHandler(activity, runs, log))

	api := app.Group("/api")
	api.Get("/sessions/:number/summary", SessionSummaryHandler(activity, log))
	api.Get("/sessions/:number/cohesion", SessionCohesionHandler(activity, log))
	api.Get("/speakers", SpeakersHandler(activity, log))
	api.Get("/timeline", TimelineHandler(activity, log))
	api.Get("/runs", RunsHandler(runs, log))
}
