package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/usecases"
)

// sessionResponse is returned by every editor session endpoint.
type sessionResponse struct {
	ID    string             `json:"id"`
	State domain.EditorState `json:"state"`
}

type selectRequest struct {
	ID string `json:"id"`
}

type renameRequest struct {
	Name string `json:"name"`
}

// OpenSessionHandler starts an editor session for the caller.
func OpenSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, st, err := deps.Sessions.Open(c.UserContext(), currentSession(c).Username)
		if err != nil {
			return writeError(c, err)
		}
		LoggerFromCtx(c.UserContext()).Info("editor session started", "session", sess.ID)
		return c.Status(fiber.StatusCreated).JSON(sessionResponse{ID: sess.ID, State: st})
	}
}

// GetSessionHandler returns the current editor state.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := ownedSession(c, deps)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(sessionResponse{ID: sess.ID, State: sess.Editor().State()})
	}
}

// CloseSessionHandler tears a session down.
func CloseSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := ownedSession(c, deps)
		if err != nil {
			return writeError(c, err)
		}
		deps.Sessions.Close(sess.ID)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ReloadSessionHandler re-reads the map collection.
func ReloadSessionHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(ctx context.Context, c *fiber.Ctx, e *usecases.MapEditor) (domain.EditorState, error) {
		return e.Load(ctx)
	})
}

// SelectMapHandler selects a map while browsing.
func SelectMapHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(ctx context.Context, c *fiber.Ctx, e *usecases.MapEditor) (domain.EditorState, error) {
		var req selectRequest
		if err := c.BodyParser(&req); err != nil {
			return domain.EditorState{}, errBody
		}
		return e.SelectMap(req.ID)
	})
}

// CreateSessionMapHandler starts editing a new, unsaved map.
func CreateSessionMapHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(ctx context.Context, c *fiber.Ctx, e *usecases.MapEditor) (domain.EditorState, error) {
		return e.CreateMap()
	})
}

// EditMapHandler enters edit mode for an existing map.
func EditMapHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(ctx context.Context, c *fiber.Ctx, e *usecases.MapEditor) (domain.EditorState, error) {
		var req selectRequest
		if err := c.BodyParser(&req); err != nil {
			return domain.EditorState{}, errBody
		}
		return e.EditMap(req.ID)
	})
}

// RenameDraftHandler updates the name being edited.
func RenameDraftHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(ctx context.Context, c *fiber.Ctx, e *usecases.MapEditor) (domain.EditorState, error) {
		var req renameRequest
		if err := c.BodyParser(&req); err != nil {
			return domain.EditorState{}, errBody
		}
		return e.RenameDraft(req.Name)
	})
}

// SaveSessionMapHandler persists the current map under the draft name.
func SaveSessionMapHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(ctx context.Context, c *fiber.Ctx, e *usecases.MapEditor) (domain.EditorState, error) {
		return e.SaveMap(ctx)
	})
}

// CancelEditHandler leaves edit mode without saving the name.
func CancelEditHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(ctx context.Context, c *fiber.Ctx, e *usecases.MapEditor) (domain.EditorState, error) {
		return e.CancelEdit()
	})
}

// DeleteSessionMapHandler deletes a map through the editor.
func DeleteSessionMapHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(ctx context.Context, c *fiber.Ctx, e *usecases.MapEditor) (domain.EditorState, error) {
		return e.DeleteMap(ctx, c.Params("mapId"))
	})
}

// DeleteAreaHandler removes an area of the map being edited.
func DeleteAreaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := ownedSession(c, deps)
		if err != nil {
			return writeError(c, err)
		}
		st, err := sess.DeleteArea(c.UserContext(), c.Params("areaId"))
		if err != nil {
			return writeError(c, err)
		}
		sess.Publish(st)
		return c.JSON(sessionResponse{ID: sess.ID, State: st})
	}
}

// GestureHandler forwards a drawing-toolset event to the session's canvas.
func GestureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := ownedSession(c, deps)
		if err != nil {
			return writeError(c, err)
		}
		var g domain.DrawGesture
		if err := c.BodyParser(&g); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		st, err := sess.Gesture(c.UserContext(), g)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(sessionResponse{ID: sess.ID, State: st})
	}
}

var errBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

// editorAction runs fn against the caller's session editor and pushes the
// resulting state to the session's WebSocket listeners.
func editorAction(deps *Dependencies, fn func(ctx context.Context, c *fiber.Ctx, e *usecases.MapEditor) (domain.EditorState, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := ownedSession(c, deps)
		if err != nil {
			return writeError(c, err)
		}
		st, err := fn(c.UserContext(), c, sess.Editor())
		if err == errBody {
			return errBadRequest(c, "invalid request body")
		}
		if err != nil {
			return writeError(c, err)
		}
		sess.Publish(st)
		return c.JSON(sessionResponse{ID: sess.ID, State: st})
	}
}

// ownedSession resolves :id to a session owned by the caller. Admins may act
// on any session.
func ownedSession(c *fiber.Ctx, deps *Dependencies) (*usecases.EditorSession, error) {
	sess, err := deps.Sessions.Get(c.Params("id"))
	if err != nil {
		return nil, err
	}
	if who := currentSession(c); who == nil || (who.Username != sess.Owner && who.Role != domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	return sess, nil
}
