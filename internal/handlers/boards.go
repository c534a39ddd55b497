// boards.go
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
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/retroboard/internal/middleware"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/types"
	"github.com/localnerve/retroboard/internal/utils"
)

// BoardHandler handles board, column, card, vote and comment routes
type BoardHandler struct {
	Service *services.Service
}

// ListBoards handles GET /api/boards?teamId=
// @Summary List boards
// @Description List the boards of a team, newest first, or every board without teamId
// @Tags Boards
// @Produce json
// @Param teamId query string false "Team ID"
// @Success 200 {array} models.Board
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /boards [get]
func (h *BoardHandler) ListBoards(c *fiber.Ctx) error {
	boards, err := h.Service.ListBoards(c.UserContext(), c.Query("teamId"))
	if err != nil {
		return err
	}
	return orEmpty(c, boards)
}

// CreateBoard handles POST /api/boards
// @Summary Create a board
// @Description Create a board seeded with the given or the default columns
// @Tags Boards
// @Accept json
// @Produce json
// @Param body body types.CreateBoardRequest true "Board"
// @Success 201 {object} models.Board
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /boards [post]
func (h *BoardHandler) CreateBoard(c *fiber.Ctx) error {
	var req types.CreateBoardRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	board, err := h.Service.CreateBoard(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, board, fiber.StatusCreated)
}

// GetBoard handles GET /api/boards/:id
// @Summary Get a board
// @Tags Boards
// @Produce json
// @Param id path string true "Board ID"
// @Success 200 {object} models.Board "null when the board does not exist"
// @Security BearerAuth
// @Router /boards/{id} [get]
func (h *BoardHandler) GetBoard(c *fiber.Ctx) error {
	board, err := h.Service.GetBoard(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return orNull(c, board)
}

// UpdateBoard handles PUT /api/boards/:id
// @Summary Update a board
// @Description Apply one command: update, invite, remove_member, complete, reopen, archive, unarchive
// @Tags Boards
// @Accept json
// @Produce json
// @Param id path string true "Board ID"
// @Param body body types.BoardCommand true "Command"
// @Success 200 {object} models.Board
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /boards/{id} [put]
func (h *BoardHandler) UpdateBoard(c *fiber.Ctx) error {
	var cmd types.BoardCommand
	if err := parseBody(c, &cmd); err != nil {
		return err
	}
	board, err := h.Service.UpdateBoard(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), cmd)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, board, fiber.StatusOK)
}

// DeleteBoard handles DELETE /api/boards/:id
// @Summary Delete a board
// @Description Delete a board with its columns, cards and comments
// @Tags Boards
// @Produce json
// @Param id path string true "Board ID"
// @Success 200 {object} utils.OkResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /boards/{id} [delete]
func (h *BoardHandler) DeleteBoard(c *fiber.Ctx) error {
	if err := h.Service.DeleteBoard(c.UserContext(), middleware.CurrentUser(c), c.Params("id")); err != nil {
		return err
	}
	return utils.OkResponse(c)
}

// CloneBoard handles POST /api/boards/:id/clone
// @Summary Clone a board
// @Description Copy settings, columns and cards into a new board. Votes are reset, comments are not copied.
// @Tags Boards
// @Accept json
// @Produce json
// @Param id path string true "Board ID"
// @Param body body types.CloneBoardRequest false "Title and creator"
// @Success 201 {object} models.Board
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /boards/{id}/clone [post]
func (h *BoardHandler) CloneBoard(c *fiber.Ctx) error {
	var req types.CloneBoardRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	board, err := h.Service.CloneBoard(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, board, fiber.StatusCreated)
}

// ListColumns handles GET /api/columns?boardId=
// @Summary List columns
// @Tags Columns
// @Produce json
// @Param boardId query string true "Board ID"
// @Success 200 {array} models.Column
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /columns [get]
func (h *BoardHandler) ListColumns(c *fiber.Ctx) error {
	boardID, err := requireQuery(c, "boardId")
	if err != nil {
		return err
	}
	columns, err := h.Service.ListColumns(c.UserContext(), boardID)
	if err != nil {
		return err
	}
	return orEmpty(c, columns)
}

// CreateColumn handles POST /api/columns
// @Summary Create a column
// @Tags Columns
// @Accept json
// @Produce json
// @Param body body types.CreateColumnRequest true "Column"
// @Success 201 {object} models.Column
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /columns [post]
func (h *BoardHandler) CreateColumn(c *fiber.Ctx) error {
	var req types.CreateColumnRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	column, err := h.Service.CreateColumn(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, column, fiber.StatusCreated)
}

// UpdateColumn handles PUT /api/columns/:id
// @Summary Update a column
// @Description Apply one command: rename, recolor, move
// @Tags Columns
// @Accept json
// @Produce json
// @Param id path string true "Column ID"
// @Param body body types.ColumnCommand true "Command"
// @Success 200 {object} models.Column
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /columns/{id} [put]
func (h *BoardHandler) UpdateColumn(c *fiber.Ctx) error {
	var cmd types.ColumnCommand
	if err := parseBody(c, &cmd); err != nil {
		return err
	}
	column, err := h.Service.UpdateColumn(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), cmd)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, column, fiber.StatusOK)
}

// DeleteColumn handles DELETE /api/columns/:id
// @Summary Delete a column
// @Description Delete a column and every card in it
// @Tags Columns
// @Produce json
// @Param id path string true "Column ID"
// @Success 200 {object} utils.OkResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /columns/{id} [delete]
func (h *BoardHandler) DeleteColumn(c *fiber.Ctx) error {
	if err := h.Service.DeleteColumn(c.UserContext(), middleware.CurrentUser(c), c.Params("id")); err != nil {
		return err
	}
	return utils.OkResponse(c)
}

// ListCards handles GET /api/cards?columnId= or ?boardId=
// @Summary List cards
// @Tags Cards
// @Produce json
// @Param columnId query string false "Column ID"
// @Param boardId query string false "Board ID"
// @Success 200 {array} models.Card
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /cards [get]
func (h *BoardHandler) ListCards(c *fiber.Ctx) error {
	if columnID := c.Query("columnId"); columnID != "" {
		cards, err := h.Service.ListCards(c.UserContext(), columnID)
		if err != nil {
			return err
		}
		return orEmpty(c, cards)
	}
	boardID, err := requireQuery(c, "boardId")
	if err != nil {
		return types.BadRequest("query parameter columnId or boardId is required")
	}
	cards, err := h.Service.ListBoardCards(c.UserContext(), boardID)
	if err != nil {
		return err
	}
	return orEmpty(c, cards)
}

// CreateCard handles POST /api/cards
// @Summary Create a card
// @Tags Cards
// @Accept json
// @Produce json
// @Param body body types.CreateCardRequest true "Card"
// @Success 201 {object} models.Card
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /cards [post]
func (h *BoardHandler) CreateCard(c *fiber.Ctx) error {
	var req types.CreateCardRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	card, err := h.Service.CreateCard(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, card, fiber.StatusCreated)
}

// UpdateCard handles PUT /api/cards/:id
// @Summary Update a card
// @Description Apply one command: edit, move, recolor
// @Tags Cards
// @Accept json
// @Produce json
// @Param id path string true "Card ID"
// @Param body body types.CardCommand true "Command"
// @Success 200 {object} models.Card
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /cards/{id} [put]
func (h *BoardHandler) UpdateCard(c *fiber.Ctx) error {
	var cmd types.CardCommand
	if err := parseBody(c, &cmd); err != nil {
		return err
	}
	card, err := h.Service.UpdateCard(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), cmd)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, card, fiber.StatusOK)
}

// DeleteCard handles DELETE /api/cards/:id
// @Summary Delete a card
// @Tags Cards
// @Produce json
// @Param id path string true "Card ID"
// @Success 200 {object} utils.OkResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /cards/{id} [delete]
func (h *BoardHandler) DeleteCard(c *fiber.Ctx) error {
	if err := h.Service.DeleteCard(c.UserContext(), middleware.CurrentUser(c), c.Params("id")); err != nil {
		return err
	}
	return utils.OkResponse(c)
}

// ToggleVote handles POST /api/cards/:id/vote
// @Summary Toggle a vote
// @Description Add the user's vote, or remove it when already present
// @Tags Cards
// @Accept json
// @Produce json
// @Param id path string true "Card ID"
// @Param body body types.VoteRequest false "Voter, defaults to the caller"
// @Success 200 {object} services.VoteResult
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /cards/{id}/vote [post]
func (h *BoardHandler) ToggleVote(c *fiber.Ctx) error {
	var req types.VoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.Service.ToggleVote(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), req.UserID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// AddComment handles POST /api/cards/:id/comments
// @Summary Comment on a card
// @Tags Cards
// @Accept json
// @Produce json
// @Param id path string true "Card ID"
// @Param body body types.CommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /cards/{id}/comments [post]
func (h *BoardHandler) AddComment(c *fiber.Ctx) error {
	var req types.CommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.Service.AddComment(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, comment, fiber.StatusCreated)
}

// DeleteComment handles DELETE /api/cards/:id/comments/:commentId
// @Summary Delete a comment
// @Tags Cards
// @Produce json
// @Param id path string true "Card ID"
// @Param commentId path string true "Comment ID"
// @Success 200 {object} utils.OkResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /cards/{id}/comments/{commentId} [delete]
func (h *BoardHandler) DeleteComment(c *fiber.Ctx) error {
	if err := h.Service.DeleteComment(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), c.Params("commentId")); err != nil {
		return err
	}
	return utils.OkResponse(c)
}
