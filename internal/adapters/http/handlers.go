package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler exchanges credentials for a session token.
func LoginHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		res, err := deps.Auth.Login(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(res)
	}
}

// MeHandler returns the caller's session.
func MeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(currentSession(c))
	}
}

type mapRequest struct {
	Name  string        `json:"name"`
	Areas []domain.Area `json:"areas"`
}

// ListMapsHandler returns all maps ordered by creation time.
func ListMapsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		maps, err := deps.Maps.List(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}

		page, pg := paginate(c, maps, 50, 200)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetMapHandler returns a single map.
func GetMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := deps.Maps.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(m)
	}
}

// CreateMapHandler stores a new map with optional areas.
func CreateMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req mapRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		m, err := deps.Maps.Create(c.UserContext(), req.Name, req.Areas)
		if err != nil {
			return writeError(c, err)
		}
		c.Location("/v1/maps/" + m.ID)
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

// ReplaceMapHandler overwrites a map document.
func ReplaceMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req mapRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		m, err := deps.Maps.Replace(c.UserContext(), c.Params("id"), req.Name, req.Areas)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(m)
	}
}

// DeleteMapHandler removes a map.
func DeleteMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Maps.Delete(c.UserContext(), c.Params("id")); err != nil {
			return writeError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// LocateHandler reports which areas of a map contain lat/lng.
func LocateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		res, err := deps.Maps.Locate(c.UserContext(), c.Params("id"), p)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(res)
	}
}

// RobotPositionHandler returns the robot's last reported position.
func RobotPositionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Control.Position(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"position": p})
	}
}

// RobotAreaHandler locates the robot within the areas of ?mapId=.
func RobotAreaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mapID := c.Query("mapId")
		if mapID == "" {
			return errBadRequest(c, "mapId query parameter is required")
		}
		p, err := deps.Control.Position(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		res, err := deps.Maps.Locate(c.UserContext(), mapID, *p)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(res)
	}
}

// StatisticsHandler returns the daily, weekly and waste type feeds.
func StatisticsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := deps.Statistics.Summary(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(st)
	}
}

// DailyReadingsHandler returns the last 24 readings.
func DailyReadingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := deps.Statistics.Daily(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(r)
	}
}

// WeeklyReadingsHandler returns the weekly readings, Monday first.
func WeeklyReadingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := deps.Statistics.Weekly(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(r)
	}
}

// WasteTypesHandler returns the collected waste breakdown.
func WasteTypesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := deps.Statistics.WasteTypes(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(w)
	}
}

// HistoricalHandler returns archived readings in [from, to]. Both bounds accept
// RFC 3339 timestamps or dates; the default range is the last seven days.
func HistoricalHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		to := time.Now()
		from := to.AddDate(0, 0, -7)
		var err error
		if v := c.Query("to"); v != "" {
			if to, err = parseTime(v); err != nil {
				return errBadRequest(c, "to must be RFC 3339 or YYYY-MM-DD")
			}
		}
		if v := c.Query("from"); v != "" {
			if from, err = parseTime(v); err != nil {
				return errBadRequest(c, "from must be RFC 3339 or YYYY-MM-DD")
			}
		}
		r, err := deps.Statistics.Historical(c.UserContext(), from, to)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(r)
	}
}

type driveRequest struct {
	Direction domain.Direction `json:"direction"`
	Speed     int              `json:"speed"`
}

type depthRequest struct {
	Depth float64 `json:"depth"`
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

type modeRequest struct {
	Mode  domain.OperatingMode `json:"mode"`
	MapID string               `json:"mapId"`
}

type rampRequest struct {
	Direction  domain.Direction `json:"direction"`
	Target     int              `json:"target"`
	IntervalMs int              `json:"intervalMs"`
}

type videoRequest struct {
	AIEnabled bool `json:"aiEnabled"`
}

// ControlStateHandler returns the current drive command.
func ControlStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cmd, err := deps.Control.Current(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(cmd)
	}
}

// DriveHandler sets direction and speed.
func DriveHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req driveRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		cmd, err := deps.Control.Drive(c.UserContext(), currentSession(c).Username, req.Direction, req.Speed)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(cmd)
	}
}

// StopHandler halts the robot.
func StopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cmd, err := deps.Control.Stop(c.UserContext(), currentSession(c).Username)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(cmd)
	}
}

// DepthHandler sets the working depth.
func DepthHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req depthRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		cmd, err := deps.Control.SetDepth(c.UserContext(), currentSession(c).Username, req.Depth)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(cmd)
	}
}

// PauseHandler pauses or resumes manual control.
func PauseHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pauseRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		cmd, err := deps.Control.SetPaused(c.UserContext(), currentSession(c).Username, req.Paused)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(cmd)
	}
}

// ModeHandler switches between manual and autonomous operation.
func ModeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req modeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		cmd, err := deps.Control.SetMode(c.UserContext(), req.Mode, req.MapID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(cmd)
	}
}

// RampHandler starts a gradual speed change.
func RampHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req rampRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		interval := time.Duration(req.IntervalMs) * time.Millisecond
		id, err := deps.Control.StartRamp(c.UserContext(), req.Direction, req.Target, interval)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"rampId": id})
	}
}

// VideoHandler returns the active stream URL.
func VideoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := deps.Control.Video(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(v)
	}
}

// SetVideoHandler toggles the AI stream.
func SetVideoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req videoRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		v, err := deps.Control.SetVideoAI(c.UserContext(), req.AIEnabled)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(v)
	}
}

type seedRequest struct {
	Series []string `json:"series"`
}

type userRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// SeedHandler writes generated statistics. An empty body seeds every series.
func SeedHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req seedRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		written, err := deps.Statistics.Seed(c.UserContext(), nil, req.Series...)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(written)
	}
}

// ListUsersHandler lists accounts without credentials.
func ListUsersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		users, err := deps.Auth.ListUsers(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(users)
	}
}

// CreateUserHandler adds or updates an account.
func CreateUserHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req userRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Role == "" {
			req.Role = domain.RoleUser
		}
		u, err := deps.Auth.AddUser(c.UserContext(), req.Username, req.Password, req.Role)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(u)
	}
}

func queryPoint(c *fiber.Ctx) (domain.LatLng, error) {
	if c.Query("lat") == "" || c.Query("lng") == "" {
		return domain.LatLng{}, fiber.NewError(fiber.StatusBadRequest, "lat and lng are required")
	}
	p := domain.LatLng{Lat: c.QueryFloat("lat"), Lng: c.QueryFloat("lng")}
	if !p.Valid() {
		return p, fiber.NewError(fiber.StatusBadRequest, "lat/lng out of range")
	}
	return p, nil
}

func parseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}
