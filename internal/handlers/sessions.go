package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/althingi/internal/model"
	"github.com/jjenkins/althingi/internal/service"
	"github.com/sirupsen/logrus"
)

// errorBody is the JSON error response
type errorBody struct {
	Error string `json:"error"`
}

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(errorBody{Error: msg})
}

// sessionFrom resolves the session named by value, or the active session
// when value is empty or 0. When the session is nil the error response has
// already been written.
func sessionFrom(c *fiber.Ctx, activity *service.ActivityService, log logrus.FieldLogger, value string) (*model.Session, error) {
	number := 0
	if value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, jsonError(c, fiber.StatusBadRequest, "Invalid session number")
		}
		number = n
	}

	session, err := activity.FindSession(c.UserContext(), number)
	if err != nil {
		log.WithError(err).Error("Error loading session")
		return nil, jsonError(c, fiber.StatusInternalServerError, "Error loading session")
	}
	if session == nil {
		return nil, jsonError(c, fiber.StatusNotFound, "Session not found")
	}
	return session, nil
}

// SessionSummaryHandler returns every metric of a session
func SessionSummaryHandler(activity *service.ActivityService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := sessionFrom(c, activity, log, c.Params("number"))
		if session == nil {
			return err
		}

		summary, err := activity.Summary(c.UserContext(), session, service.SummaryOptions{
			Months: c.QueryInt("months", 12),
			Limit:  c.QueryInt("limit", 10),
			Now:    time.Now(),
		})
		if err != nil {
			log.WithError(err).WithField("session", session.Number).Error("Error computing summary")
			return jsonError(c, fiber.StatusInternalServerError, "Error computing summary")
		}
		return c.JSON(summary)
	}
}

// CohesionResponse is the body of the cohesion endpoint
type CohesionResponse struct {
	Session  int                   `json:"session"`
	Tallies  []model.PartyTally    `json:"tallies"`
	Cohesion []model.PartyCohesion `json:"cohesion"`
}

// SessionCohesionHandler returns per-party tallies and cohesion scores
func SessionCohesionHandler(activity *service.ActivityService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := sessionFrom(c, activity, log, c.Params("number"))
		if session == nil {
			return err
		}

		ctx := c.UserContext()
		tallies, err := activity.PartyVoteTallies(ctx, session.ID)
		if err != nil {
			log.WithError(err).Error("Error loading party tallies")
			return jsonError(c, fiber.StatusInternalServerError, "Error loading party votes")
		}
		cohesion, err := activity.PartyCohesion(ctx, session.ID)
		if err != nil {
			log.WithError(err).Error("Error computing cohesion")
			return jsonError(c, fiber.StatusInternalServerError, "Error loading party votes")
		}

		return c.JSON(CohesionResponse{Session: session.Number, Tallies: tallies, Cohesion: cohesion})
	}
}

// SpeakersHandler returns the top speakers of a session
func SpeakersHandler(activity *service.ActivityService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := sessionFrom(c, activity, log, c.Query("session"))
		if session == nil {
			return err
		}

		speakers, err := activity.TopSpeakers(c.UserContext(), session.ID, c.QueryInt("limit", 10))
		if err != nil {
			log.WithError(err).Error("Error loading speakers")
			return jsonError(c, fiber.StatusInternalServerError, "Error loading speakers")
		}
		return c.JSON(speakers)
	}
}

// TimelineHandler returns passed bills per month for a session
func TimelineHandler(activity *service.ActivityService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := sessionFrom(c, activity, log, c.Query("session"))
		if session == nil {
			return err
		}

		timeline, err := activity.PassedTimeline(c.UserContext(), session.ID, c.QueryInt("months", 12), time.Now())
		if err != nil {
			log.WithError(err).Error("Error loading timeline")
			return jsonError(c, fiber.StatusInternalServerError, "Error loading timeline")
		}
		return c.JSON(timeline)
	}
}

// RunsHandler returns the most recent ingest runs
func RunsHandler(runs service.RunRecorder, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := runs.ListRuns(c.UserContext(), c.QueryInt("limit", 50))
		if err != nil {
			log.WithError(err).Error("Error loading runs")
			return jsonError(c, fiber.StatusInternalServerError, "Error loading runs")
		}
		if list == nil {
			list = []model.RunStats{}
		}
		return c.JSON(list)
	}
}
