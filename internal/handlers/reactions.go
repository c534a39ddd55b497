package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/retroboard/internal/middleware"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/types"
	"github.com/localnerve/retroboard/internal/utils"
)

// DefaultHeartbeat is the idle interval after which the stream writes a keep-alive comment
const DefaultHeartbeat = 25 * time.Second

// ReactionHandler handles reaction routes
type ReactionHandler struct {
	Service   *services.Service
	Heartbeat time.Duration
}

// ListReactions handles GET /api/reactions?boardId=&since=
// @Summary Poll reactions
// @Description Reactions of a board newer than since (Unix milliseconds), oldest first. Unknown boards yield an empty list.
// @Tags Reactions
// @Produce json
// @Param boardId query string true "Board ID"
// @Param since query int false "Exclusive lower bound, Unix ms"
// @Success 200 {array} models.ReactionEvent
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /reactions [get]
func (h *ReactionHandler) ListReactions(c *fiber.Ctx) error {
	boardID, err := requireQuery(c, "boardId")
	if err != nil {
		return err
	}
	since, err := queryInt64(c, "since")
	if err != nil {
		return err
	}
	events, err := h.Service.ReactionsSince(c.UserContext(), boardID, since)
	if err != nil {
		return err
	}
	return orEmpty(c, events)
}

// PublishReaction handles POST /api/reactions
// @Summary Publish a reaction
// @Tags Reactions
// @Accept json
// @Produce json
// @Param body body types.ReactionRequest true "Reaction"
// @Success 201 {object} models.ReactionEvent
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /reactions [post]
func (h *ReactionHandler) PublishReaction(c *fiber.Ctx) error {
	var req types.ReactionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ev, err := h.Service.PublishReaction(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, ev, fiber.StatusCreated)
}

// StreamReactions handles GET /api/reactions/stream?boardId=
// @Summary Reaction stream
// @Description Server-sent events, one "reaction" event per published reaction. Buffered reactions newer than since are replayed first.
// @Tags Reactions
// @Produce text/event-stream
// @Param boardId query string true "Board ID"
// @Param since query int false "Replay reactions newer than this Unix ms timestamp"
// @Success 200 {string} string "event stream"
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /reactions/stream [get]
func (h *ReactionHandler) StreamReactions(c *fiber.Ctx) error {
	boardID, err := requireQuery(c, "boardId")
	if err != nil {
		return err
	}
	since, err := queryInt64(c, "since")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	events, cancel, err := h.Service.SubscribeReactions(ctx, boardID)
	if err != nil {
		return err
	}
	var backlog []models.ReactionEvent
	if since > 0 {
		if backlog, err = h.Service.ReactionsSince(ctx, boardID, since); err != nil {
			cancel()
			return err
		}
	}

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		if err := streamReactions(w, backlog, events, heartbeat); err != nil {
			log.Printf("Reaction stream for board %s closed: %v", boardID, err)
		}
	})
	return nil
}

// streamReactions writes the backlog, then every event from events, until the
// channel closes or the client goes away
func streamReactions(w *bufio.Writer, backlog []models.ReactionEvent, events <-chan models.ReactionEvent, heartbeat time.Duration) error {
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return err
	}
	for _, ev := range backlog {
		if err := writeEvent(w, ev); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	last := int64(0)
	if n := len(backlog); n > 0 {
		last = backlog[n-1].Timestamp
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			// already replayed from the backlog
			if ev.Timestamp <= last {
				continue
			}
			if err := writeEvent(w, ev); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
}

// writeEvent writes one server-sent event carrying ev as JSON
func writeEvent(w *bufio.Writer, ev models.ReactionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: reaction\ndata: %s\n\n", ev.ID, data)
	return err
}
