// common.go
//
// A real-time retrospective board service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of retroboard.
// retroboard is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// retroboard is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with retroboard.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/retroboard/internal/types"
)

// validator is implemented by request bodies that check themselves
type validator interface {
	Validate() error
}

// parseBody decodes the JSON body into v and validates it when possible
func parseBody(c *fiber.Ctx, v interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(v); err != nil {
			return types.BadRequest("invalid request body: %v", err)
		}
	}
	if val, ok := v.(validator); ok {
		return val.Validate()
	}
	return nil
}

// requireQuery returns a trimmed query parameter or a 400 when it is missing
func requireQuery(c *fiber.Ctx, key string) (string, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return "", types.BadRequest("query parameter %s is required", key)
	}
	return value, nil
}

// queryInt64 parses an optional integer query parameter
func queryInt64(c *fiber.Ctx, key string) (int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, types.BadRequest("query parameter %s must be an integer", key)
	}
	return n, nil
}

// orNull renders a single entity, or JSON null when it was not found
func orNull[T any](c *fiber.Ctx, v *T) error {
	if v == nil {
		return c.Status(fiber.StatusOK).JSON(nil)
	}
	return c.Status(fiber.StatusOK).JSON(v)
}

// orEmpty renders a list, never null
func orEmpty[T any](c *fiber.Ctx, list []T) error {
	if list == nil {
		list = []T{}
	}
	return c.Status(fiber.StatusOK).JSON(list)
}
