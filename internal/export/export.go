// export.go
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

// Package export flattens a database snapshot into an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/localnerve/retroboard/internal/models"
	"github.com/xuri/excelize/v2"
)

// Sheet names, in workbook order
const (
	SheetUsers        = "Users"
	SheetBoards       = "Boards"
	SheetBoardMembers = "Board Members"
	SheetColumns      = "Columns"
	SheetCards        = "Cards"
	SheetComments     = "Comments"
	SheetReactions    = "Reactions"
)

// ContentType is the MIME type of the written workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name   string
	header []interface{}
	rows   [][]interface{}
}

// Build creates the workbook for snap. The caller closes the returned file.
func Build(snap *models.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, s := range sheets(snap) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("new sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, bold); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write builds the workbook for snap and writes it to w
func Write(w io.Writer, snap *models.Snapshot) error {
	f, err := Build(snap)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
		return fmt.Errorf("%s header: %w", s.name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(s.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", s.name, err)
	}
	for i := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &s.rows[i]); err != nil {
			return fmt.Errorf("%s row %d: %w", s.name, i+2, err)
		}
	}
	return nil
}

func sheets(snap *models.Snapshot) []sheet {
	users := sheet{name: SheetUsers, header: []interface{}{"ID", "Email", "Name", "Role", "Avatar", "Last Login", "Last Logout", "Created"}}
	for _, u := range snap.Users {
		users.rows = append(users.rows, []interface{}{u.ID, u.Email, u.Name, u.Role, u.AvatarURL, timeCell(u.LastLoginAt), timeCell(u.LastLogoutAt), u.CreatedAt.UTC().Format(time.RFC3339)})
	}

	boards := sheet{name: SheetBoards, header: []interface{}{"ID", "Title", "Team", "Creator", "Voting Disabled", "Votes Hidden", "Cards Blurred", "GIFs", "Reactions", "Comments", "Max Votes", "Archived", "Completed", "Column Colors", "Created"}}
	members := sheet{name: SheetBoardMembers, header: []interface{}{"Board ID", "User ID"}}
	for _, b := range snap.Boards {
		boards.rows = append(boards.rows, []interface{}{
			b.ID, b.Title, b.TeamID, b.CreatorID,
			b.VotingDisabled, b.VotesHidden, b.CardsBlurred, b.GifsEnabled, b.ReactionsEnabled, b.CommentsEnabled,
			b.MaxVotes, b.IsArchived, b.IsCompleted, strings.Join(b.ColumnColors, ", "), b.CreatedAt.UTC().Format(time.RFC3339),
		})
		for _, uid := range b.AllowedUserIDs {
			members.rows = append(members.rows, []interface{}{b.ID, uid})
		}
	}

	columns := sheet{name: SheetColumns, header: []interface{}{"ID", "Board ID", "Title", "Color", "Order"}}
	for _, c := range snap.Columns {
		columns.rows = append(columns.rows, []interface{}{c.ID, c.BoardID, c.Title, c.Color, c.OrderIndex})
	}

	cards := sheet{name: SheetCards, header: []interface{}{"ID", "Board ID", "Column ID", "Position", "Content", "Author ID", "Author", "Anonymous", "Color", "Votes", "Voted By", "Created"}}
	for _, c := range snap.Cards {
		cards.rows = append(cards.rows, []interface{}{
			c.ID, c.BoardID, c.ColumnID, c.Position, c.Content, c.AuthorID, c.AuthorName, c.IsAnonymous,
			c.Color, c.Votes, strings.Join(c.VotedUserIDs, ", "), c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	comments := sheet{name: SheetComments, header: []interface{}{"ID", "Card ID", "Author ID", "Author", "Content", "Created"}}
	for _, c := range snap.Comments {
		comments.rows = append(comments.rows, []interface{}{c.ID, c.CardID, c.AuthorID, c.AuthorName, c.Content, c.CreatedAt.UTC().Format(time.RFC3339)})
	}

	reactions := sheet{name: SheetReactions, header: []interface{}{"ID", "Board ID", "User ID", "Emoji", "GIF", "Timestamp"}}
	for _, r := range snap.Reactions {
		reactions.rows = append(reactions.rows, []interface{}{r.ID, r.BoardID, r.UserID, r.Emoji, r.GifURL, time.UnixMilli(r.Timestamp).UTC().Format(time.RFC3339Nano)})
	}

	return []sheet{users, boards, members, columns, cards, comments, reactions}
}

func timeCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
