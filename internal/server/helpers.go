package server

import (
	"errors"
	"strings"
	"unicode"

	"devlink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that a helper already committed the HTTP
// response. Handlers receiving it must return nil so Fiber's ErrorHandler
// does not overwrite the body.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination reads limit and offset from the query string, falling back
// to defaultLimit and clamping the limit to maxPaginationLimit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	p := Pagination{
		Limit:  c.QueryInt("limit", defaultLimit),
		Offset: c.QueryInt("offset", 0),
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxPaginationLimit {
		p.Limit = maxPaginationLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// parseID reads a route parameter as a positive uint. On failure it writes a
// 400 response and returns errResponseWritten; the caller should then return
// nil. The message labels the parameter ("userId" becomes "user ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam turns a camelCase route param into a readable label:
// "id" -> "ID", "userId" -> "user ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	prefix, found := strings.CutSuffix(param, "Id")
	if !found {
		return param
	}
	var label strings.Builder
	for i, r := range prefix {
		if i > 0 && unicode.IsUpper(r) {
			label.WriteByte(' ')
		}
		label.WriteRune(unicode.ToLower(r))
	}
	return label.String() + " ID"
}
