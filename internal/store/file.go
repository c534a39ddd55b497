package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/localnerve/retroboard/internal/models"
)

// fileDocument is the on-disk layout of a FileStore
type fileDocument struct {
	Users    []models.User    `json:"users"`
	Boards   []models.Board   `json:"boards"`
	Columns  []models.Column  `json:"columns"`
	Cards    []models.Card    `json:"cards"`
	Comments []models.Comment `json:"comments"`
}

// FileStore keeps everything in memory and rewrites one JSON file after each mutation
type FileStore struct {
	mu       sync.RWMutex
	path     string
	users    map[string]models.User
	boards   map[string]models.Board
	columns  map[string]models.Column
	cards    map[string]models.Card
	comments map[string]models.Comment
}

// OpenFileStore loads path, starting empty when the file does not exist yet
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		users:    make(map[string]models.User),
		boards:   make(map[string]models.Board),
		columns:  make(map[string]models.Column),
		cards:    make(map[string]models.Card),
		comments: make(map[string]models.Comment),
	}

	var doc fileDocument
	if err := readJSONFile(path, &doc); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for _, u := range doc.Users {
		s.users[u.ID] = u
	}
	for _, b := range doc.Boards {
		s.boards[b.ID] = b
	}
	for _, c := range doc.Columns {
		s.columns[c.ID] = c
	}
	for _, c := range doc.Cards {
		c.Comments = nil
		s.cards[c.ID] = c
	}
	for _, c := range doc.Comments {
		s.comments[c.ID] = c
	}
	return s, nil
}

func readJSONFile[T any](path string, out *T) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

// writeJSONFile replaces path atomically through a temp file in the same directory
func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// save writes the whole document; callers hold the write lock
func (s *FileStore) save() error {
	doc := fileDocument{
		Users:    sortedValues(s.users, func(a, b models.User) bool { return a.CreatedAt.Before(b.CreatedAt) }),
		Boards:   sortedValues(s.boards, func(a, b models.Board) bool { return a.CreatedAt.Before(b.CreatedAt) }),
		Columns:  sortedValues(s.columns, func(a, b models.Column) bool { return a.CreatedAt.Before(b.CreatedAt) }),
		Cards:    sortedValues(s.cards, func(a, b models.Card) bool { return a.CreatedAt.Before(b.CreatedAt) }),
		Comments: sortedValues(s.comments, func(a, b models.Comment) bool { return a.CreatedAt.Before(b.CreatedAt) }),
	}
	if err := writeJSONFile(s.path, doc); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// sortedValues returns map values ordered by less, ties broken by map key
func sortedValues[T any](m map[string]T, less func(a, b T) bool) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(m))
	for _, k := range keys {
		out = append(out, m[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func now() time.Time {
	return time.Now().UTC()
}

func cloneBoard(b models.Board) models.Board {
	b.AllowedUserIDs = b.AllowedUserIDs.Clone()
	b.ColumnColors = b.ColumnColors.Clone()
	return b
}

func cloneCard(c models.Card) models.Card {
	c.VotedUserIDs = c.VotedUserIDs.Clone()
	c.Comments = nil
	return c
}

// Ping always succeeds once the file was loaded
func (s *FileStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close flushes the document
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// ListUsers returns every user, oldest first
func (s *FileStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.users, func(a, b models.User) bool { return a.CreatedAt.Before(b.CreatedAt) }), nil
}

// GetUser finds a user by id
func (s *FileStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetUserByEmail finds a user by email
func (s *FileStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

// CountUsers returns the number of users
func (s *FileStore) CountUsers(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *FileStore) emailTaken(email, exceptID string) bool {
	for _, u := range s.users {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

// CreateUser inserts a user, ErrDuplicate when the email is taken
func (s *FileStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(user.Email, "") {
		return ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	return s.save()
}

// UpdateUser saves every user field
func (s *FileStore) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if s.emailTaken(user.Email, user.ID) {
		return ErrDuplicate
	}
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = now()
	s.users[user.ID] = *user
	return s.save()
}

// DeleteUser removes a user. Cards keep their author snapshot.
func (s *FileStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return s.save()
}

// ListBoards returns boards of teamID, or all boards when teamID is empty, newest first
func (s *FileStore) ListBoards(_ context.Context, teamID string) ([]models.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	boards := []models.Board{}
	for _, b := range sortedValues(s.boards, func(a, b models.Board) bool { return a.CreatedAt.After(b.CreatedAt) }) {
		if teamID == "" || b.TeamID == teamID {
			boards = append(boards, cloneBoard(b))
		}
	}
	return boards, nil
}

// GetBoard finds a board by id
func (s *FileStore) GetBoard(_ context.Context, id string) (*models.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[id]
	if !ok {
		return nil, nil
	}
	b = cloneBoard(b)
	return &b, nil
}

// CreateBoard stores the board with its columns and cards as one write
func (s *FileStore) CreateBoard(_ context.Context, board *models.Board, columns []models.Column, cards []models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	board.CreatedAt, board.UpdatedAt = ts, ts
	if board.AllowedUserIDs == nil {
		board.AllowedUserIDs = models.StringList{}
	}
	for i := range columns {
		columns[i].BoardID = board.ID
		columns[i].OrderIndex = i
		columns[i].CreatedAt, columns[i].UpdatedAt = ts, ts
	}
	board.ColumnColors = columnColors(columns)
	for i := range cards {
		cards[i].BoardID = board.ID
		if cards[i].Version == 0 {
			cards[i].Version = 1
		}
		normalizeVotes(&cards[i])
		cards[i].CreatedAt, cards[i].UpdatedAt = ts, ts
	}

	s.boards[board.ID] = cloneBoard(*board)
	for _, c := range columns {
		s.columns[c.ID] = c
	}
	for _, c := range cards {
		s.cards[c.ID] = cloneCard(c)
	}
	return s.save()
}

// UpdateBoard saves every board field except the store maintained column colors
func (s *FileStore) UpdateBoard(_ context.Context, board *models.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.boards[board.ID]
	if !ok {
		return ErrNotFound
	}
	updated := cloneBoard(*board)
	updated.CreatedAt = current.CreatedAt
	updated.ColumnColors = current.ColumnColors
	updated.UpdatedAt = now()
	if updated.AllowedUserIDs == nil {
		updated.AllowedUserIDs = models.StringList{}
	}
	board.UpdatedAt = updated.UpdatedAt
	s.boards[board.ID] = updated
	return s.save()
}

// DeleteBoard removes the board and everything it contains
func (s *FileStore) DeleteBoard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[id]; !ok {
		return ErrNotFound
	}
	for cid, c := range s.cards {
		if c.BoardID == id {
			s.deleteCardLocked(cid)
		}
	}
	for cid, c := range s.columns {
		if c.BoardID == id {
			delete(s.columns, cid)
		}
	}
	delete(s.boards, id)
	return s.save()
}

// deleteCardLocked removes a card and its comments without renumbering
func (s *FileStore) deleteCardLocked(cardID string) {
	for id, c := range s.comments {
		if c.CardID == cardID {
			delete(s.comments, id)
		}
	}
	delete(s.cards, cardID)
}

func (s *FileStore) columnsOf(boardID string) []models.Column {
	columns := []models.Column{}
	for _, c := range s.columns {
		if c.BoardID == boardID {
			columns = append(columns, c)
		}
	}
	sort.Slice(columns, func(i, j int) bool { return columns[i].ID < columns[j].ID })
	sortColumns(columns)
	return columns
}

// renumberColumns rewrites order_index to 0..n-1, optionally moving moveID to at[0],
// and refreshes the board's column colors.
func (s *FileStore) renumberColumns(boardID, moveID string, at ...int) []models.Column {
	columns := s.columnsOf(boardID)
	if moveID != "" && len(at) > 0 {
		byID := make(map[string]models.Column, len(columns))
		ids := make([]string, len(columns))
		for i, c := range columns {
			byID[c.ID] = c
			ids[i] = c.ID
		}
		for i, cid := range insertAt(ids, moveID, at[0]) {
			columns[i] = byID[cid]
		}
	}
	for i := range columns {
		columns[i].OrderIndex = i
		s.columns[columns[i].ID] = columns[i]
	}
	if b, ok := s.boards[boardID]; ok {
		b.ColumnColors = columnColors(columns)
		s.boards[boardID] = b
	}
	return columns
}

// ListColumns returns the board's columns left to right
func (s *FileStore) ListColumns(_ context.Context, boardID string) ([]models.Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.columnsOf(boardID), nil
}

// GetColumn finds a column by id
func (s *FileStore) GetColumn(_ context.Context, id string) (*models.Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.columns[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// CreateColumn appends the column after the board's last column
func (s *FileStore) CreateColumn(_ context.Context, column *models.Column) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := now()
	column.CreatedAt, column.UpdatedAt = ts, ts
	column.OrderIndex = len(s.columnsOf(column.BoardID))
	s.columns[column.ID] = *column
	s.renumberColumns(column.BoardID, "")
	return s.save()
}

// UpdateColumn saves the column title and color
func (s *FileStore) UpdateColumn(_ context.Context, column *models.Column) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.columns[column.ID]
	if !ok {
		return ErrNotFound
	}
	current.Title = column.Title
	current.Color = column.Color
	current.UpdatedAt = now()
	s.columns[column.ID] = current
	*column = current
	s.renumberColumns(current.BoardID, "")
	return s.save()
}

// MoveColumn places the column at index and returns the board's columns in their new order
func (s *FileStore) MoveColumn(_ context.Context, id string, index int) ([]models.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	column, ok := s.columns[id]
	if !ok {
		return nil, ErrNotFound
	}
	columns := s.renumberColumns(column.BoardID, id, index)
	if err := s.save(); err != nil {
		return nil, err
	}
	return columns, nil
}

// DeleteColumn removes the column with its cards and their comments
func (s *FileStore) DeleteColumn(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	column, ok := s.columns[id]
	if !ok {
		return ErrNotFound
	}
	for cid, c := range s.cards {
		if c.ColumnID == id {
			s.deleteCardLocked(cid)
		}
	}
	delete(s.columns, id)
	s.renumberColumns(column.BoardID, "")
	return s.save()
}

// withComments returns a copy of card carrying its comments oldest first
func (s *FileStore) withComments(card models.Card) models.Card {
	card = cloneCard(card)
	card.Comments = []models.Comment{}
	for _, c := range s.comments {
		if c.CardID == card.ID {
			card.Comments = append(card.Comments, c)
		}
	}
	sort.Slice(card.Comments, func(i, j int) bool {
		if !card.Comments[i].CreatedAt.Equal(card.Comments[j].CreatedAt) {
			return card.Comments[i].CreatedAt.Before(card.Comments[j].CreatedAt)
		}
		return card.Comments[i].ID < card.Comments[j].ID
	})
	return card
}

func (s *FileStore) cardsOf(columnID string) []models.Card {
	cards := []models.Card{}
	for _, c := range s.cards {
		if c.ColumnID == columnID {
			cards = append(cards, c)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	sortCards(cards)
	return cards
}

// renumberCards rewrites positions of a column to 0..n-1, optionally placing moveID at at[0]
func (s *FileStore) renumberCards(columnID, moveID string, at ...int) {
	cards := s.cardsOf(columnID)
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	if moveID != "" && len(at) > 0 {
		ids = insertAt(ids, moveID, at[0])
	}
	for i, cid := range ids {
		c := s.cards[cid]
		c.Position = i
		s.cards[cid] = c
	}
}

// ListCards returns the column's cards top to bottom with their comments
func (s *FileStore) ListCards(_ context.Context, columnID string) ([]models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cards := s.cardsOf(columnID)
	for i := range cards {
		cards[i] = s.withComments(cards[i])
	}
	return cards, nil
}

// ListBoardCards returns every card of a board grouped by column
func (s *FileStore) ListBoardCards(_ context.Context, boardID string) ([]models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cards := []models.Card{}
	for _, c := range s.cards {
		if c.BoardID == boardID {
			cards = append(cards, s.withComments(c))
		}
	}
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].ColumnID != cards[j].ColumnID {
			return cards[i].ColumnID < cards[j].ColumnID
		}
		return cards[i].Position < cards[j].Position
	})
	return cards, nil
}

// GetCard finds a card by id with its comments
func (s *FileStore) GetCard(_ context.Context, id string) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, nil
	}
	c = s.withComments(c)
	return &c, nil
}

// CreateCard appends the card to the bottom of its column
func (s *FileStore) CreateCard(_ context.Context, card *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	normalizeVotes(card)
	if card.Version == 0 {
		card.Version = 1
	}
	ts := now()
	card.CreatedAt, card.UpdatedAt = ts, ts
	card.Position = len(s.cardsOf(card.ColumnID))
	card.Comments = []models.Comment{}
	s.cards[card.ID] = cloneCard(*card)
	return s.save()
}

// UpdateCard writes content, color and votes guarded by the card version
func (s *FileStore) UpdateCard(_ context.Context, card *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.cards[card.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != card.Version {
		return ErrVersionConflict
	}
	normalizeVotes(card)
	current.Content = card.Content
	current.Color = card.Color
	current.VotedUserIDs = card.VotedUserIDs.Clone()
	current.Votes = len(current.VotedUserIDs)
	current.Version++
	current.UpdatedAt = now()
	s.cards[card.ID] = current

	card.Version = current.Version
	card.UpdatedAt = current.UpdatedAt
	return s.save()
}

// MoveCard moves the card to index within columnID and renumbers both columns
func (s *FileStore) MoveCard(_ context.Context, id, columnID string, index int) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	dest, ok := s.columns[columnID]
	if !ok {
		return nil, ErrNotFound
	}

	source := card.ColumnID
	if source != columnID {
		card.ColumnID = columnID
		card.BoardID = dest.BoardID
		card.UpdatedAt = now()
		s.cards[id] = card
	}
	s.renumberCards(columnID, id, index)
	if source != columnID {
		s.renumberCards(source, "")
	}
	if err := s.save(); err != nil {
		return nil, err
	}
	moved := s.withComments(s.cards[id])
	return &moved, nil
}

// DeleteCard removes the card and its comments
func (s *FileStore) DeleteCard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return ErrNotFound
	}
	s.deleteCardLocked(id)
	s.renumberCards(card.ColumnID, "")
	return s.save()
}

// AddComment attaches a comment to an existing card
func (s *FileStore) AddComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[comment.CardID]; !ok {
		return ErrNotFound
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now()
	}
	s.comments[comment.ID] = *comment
	return s.save()
}

// DeleteComment removes a comment of cardID
func (s *FileStore) DeleteComment(_ context.Context, cardID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[commentID]
	if !ok || c.CardID != cardID {
		return ErrNotFound
	}
	delete(s.comments, commentID)
	return s.save()
}

// Snapshot copies every collection for export
func (s *FileStore) Snapshot(_ context.Context) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &models.Snapshot{
		Users:     sortedValues(s.users, func(a, b models.User) bool { return a.CreatedAt.Before(b.CreatedAt) }),
		Boards:    []models.Board{},
		Columns:   []models.Column{},
		Cards:     []models.Card{},
		Comments:  sortedValues(s.comments, func(a, b models.Comment) bool { return a.CreatedAt.Before(b.CreatedAt) }),
		Reactions: []models.ReactionEvent{},
	}
	for _, b := range sortedValues(s.boards, func(a, b models.Board) bool { return a.CreatedAt.Before(b.CreatedAt) }) {
		snap.Boards = append(snap.Boards, cloneBoard(b))
		snap.Columns = append(snap.Columns, s.columnsOf(b.ID)...)
		for _, c := range s.columnsOf(b.ID) {
			for _, card := range s.cardsOf(c.ID) {
				snap.Cards = append(snap.Cards, cloneCard(card))
			}
		}
	}
	return snap, nil
}
