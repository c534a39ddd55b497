package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/localnerve/retroboard/internal/boardview"
	"github.com/localnerve/retroboard/internal/export"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/types"
)

func parse(name string, args []string, define func(fs *flag.FlagSet)) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	define(fs)
	return fs.Parse(args)
}

func (a *cli) startSession(session *services.Session) error {
	if err := a.saveToken(session.Token); err != nil {
		return err
	}
	a.state.Start(session.User, session.Token)
	fmt.Printf("Signed in as %s (%s)\n", session.User.DisplayName(), session.User.Role)
	return nil
}

func cmdSignup(ctx context.Context, a *cli, args []string) error {
	var email, name string
	if err := parse("signup", args, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "email address")
		fs.StringVar(&name, "name", "", "display name")
	}); err != nil {
		return err
	}
	session, err := a.ds.SignUp(ctx, email, name)
	if err != nil {
		return err
	}
	return a.startSession(session)
}

func cmdLogin(ctx context.Context, a *cli, args []string) error {
	var email string
	if err := parse("login", args, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "email address")
	}); err != nil {
		return err
	}
	session, err := a.ds.SignIn(ctx, email)
	if errors.Is(err, services.ErrUserNotFound) {
		return fmt.Errorf("no account for %s, run retroctl signup", email)
	}
	if err != nil {
		return err
	}
	return a.startSession(session)
}

func cmdLogout(ctx context.Context, a *cli, _ []string) error {
	if a.state.User() != nil {
		if err := a.ds.SignOut(ctx, ""); err != nil {
			return err
		}
	}
	a.state.Reset()
	a.ds.UseToken("")
	if err := os.Remove(a.tokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func cmdBoards(ctx context.Context, a *cli, args []string) error {
	var team string
	if err := parse("boards", args, func(fs *flag.FlagSet) {
		fs.StringVar(&team, "team", "", "only boards of this team")
	}); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	boards, err := a.ds.ListBoards(ctx, team)
	if err != nil {
		return err
	}
	for _, b := range boards {
		state := "open"
		if b.IsCompleted {
			state = "completed"
		}
		fmt.Printf("%s  %-30s  %-10s  %s\n", b.ID, b.Title, state, b.TeamID)
	}
	return nil
}

func cmdCreateBoard(ctx context.Context, a *cli, args []string) error {
	var title, team string
	var maxVotes int
	if err := parse("create-board", args, func(fs *flag.FlagSet) {
		fs.StringVar(&title, "title", "", "board title")
		fs.StringVar(&team, "team", "", "team id")
		fs.IntVar(&maxVotes, "max-votes", models.DefaultMaxVotes, "votes per user, 0 for unlimited")
	}); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	max := types.FlexInt64(maxVotes)
	req := types.CreateBoardRequest{Title: title, TeamID: team}
	req.Options.MaxVotes = &max
	board, err := a.ds.CreateBoard(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(board.ID)
	return nil
}

func cmdShow(ctx context.Context, a *cli, args []string) error {
	var boardID string
	var filter boardview.Filter
	if err := parse("show", args, func(fs *flag.FlagSet) {
		fs.StringVar(&boardID, "board", "", "board id")
		fs.StringVar(&filter.Search, "search", "", "only cards containing this text")
		fs.StringVar(&filter.AuthorID, "author", "", "only cards of this author id")
		fs.BoolVar(&filter.ByVotes, "by-votes", false, "most voted first")
	}); err != nil {
		return err
	}
	view, err := a.view(ctx, boardID)
	if err != nil {
		return err
	}
	printBoard(view, filter, a.state.UserID())
	return nil
}

func printBoard(view *boardview.Controller, filter boardview.Filter, userID string) {
	board, _ := view.Board()
	lock := ""
	if !view.CanEdit() {
		lock = " [read only]"
	}
	fmt.Printf("%s%s\n", board.Title, lock)
	for _, column := range view.Columns() {
		fmt.Printf("\n== %s (%s)\n", column.Title, column.ID)
		for _, card := range view.Visible(column.ID, filter) {
			content := card.Content
			if board.CardsBlurred && card.AuthorID != "" && card.AuthorID != userID {
				content = "•••"
			}
			votes := fmt.Sprintf("%d", card.Votes)
			if board.VotesHidden {
				votes = "?"
			}
			fmt.Printf("  [%s] %s  (%s votes, %s)\n", card.ID, content, votes, card.AuthorName)
			for _, comment := range card.Comments {
				fmt.Printf("      - %s: %s\n", comment.AuthorName, comment.Content)
			}
		}
	}
}

func cmdAddCard(ctx context.Context, a *cli, args []string) error {
	var boardID, columnID, content string
	var opts types.CardOptions
	if err := parse("add-card", args, func(fs *flag.FlagSet) {
		fs.StringVar(&boardID, "board", "", "board id")
		fs.StringVar(&columnID, "column", "", "column id")
		fs.StringVar(&content, "content", "", "card text")
		fs.BoolVar(&opts.IsAnonymous, "anonymous", false, "hide the author")
		fs.StringVar(&opts.Color, "color", "", "card color")
	}); err != nil {
		return err
	}
	view, err := a.view(ctx, boardID)
	if err != nil {
		return err
	}
	card, err := view.AddCard(ctx, columnID, content, opts)
	if err != nil {
		return err
	}
	fmt.Println(card.ID)
	return nil
}

func cmdVote(ctx context.Context, a *cli, args []string) error {
	var boardID, cardID string
	if err := parse("vote", args, func(fs *flag.FlagSet) {
		fs.StringVar(&boardID, "board", "", "board id")
		fs.StringVar(&cardID, "card", "", "card id")
	}); err != nil {
		return err
	}
	view, err := a.view(ctx, boardID)
	if err != nil {
		return err
	}
	if err := view.ToggleVote(ctx, cardID); err != nil {
		return err
	}
	card, _ := view.Card(cardID)
	fmt.Printf("%s now has %d votes\n", card.ID, card.Votes)
	return nil
}

func cmdMove(ctx context.Context, a *cli, args []string) error {
	var boardID, cardID, columnID string
	var index int
	if err := parse("move", args, func(fs *flag.FlagSet) {
		fs.StringVar(&boardID, "board", "", "board id")
		fs.StringVar(&cardID, "card", "", "card id")
		fs.StringVar(&columnID, "column", "", "destination column id")
		fs.IntVar(&index, "index", 0, "position in the destination column")
	}); err != nil {
		return err
	}
	view, err := a.view(ctx, boardID)
	if err != nil {
		return err
	}
	view.DragOver(cardID, columnID)
	return view.DragEnd(ctx, cardID, columnID, index)
}

func cmdReact(ctx context.Context, a *cli, args []string) error {
	var boardID, emoji, gif string
	if err := parse("react", args, func(fs *flag.FlagSet) {
		fs.StringVar(&boardID, "board", "", "board id")
		fs.StringVar(&emoji, "emoji", "", "emoji to send")
		fs.StringVar(&gif, "gif", "", "gif url to send")
	}); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	feed := boardview.NewReactionFeed(a.ds, a.state, boardID, printReaction)
	_, err := feed.Send(ctx, emoji, gif)
	return err
}

func printReaction(ev models.ReactionEvent) {
	payload := ev.Emoji
	if ev.GifURL != "" {
		payload = ev.GifURL
	}
	fmt.Printf("%s  %s  %s\n", time.UnixMilli(ev.Timestamp).Format(time.Kitchen), ev.UserID, payload)
}

func cmdWatch(ctx context.Context, a *cli, args []string) error {
	var boardID string
	var poll bool
	if err := parse("watch", args, func(fs *flag.FlagSet) {
		fs.StringVar(&boardID, "board", "", "board id")
		fs.BoolVar(&poll, "poll", false, "poll instead of subscribing")
	}); err != nil {
		return err
	}
	if _, err := a.view(ctx, boardID); err != nil {
		return err
	}
	feed := boardview.NewReactionFeed(a.ds, a.state, boardID, printReaction)
	feed.Push = !poll
	fmt.Println("Watching reactions, Ctrl-C to stop")
	return feed.Run(ctx)
}

func cmdExport(ctx context.Context, a *cli, args []string) error {
	var out string
	if err := parse("export", args, func(fs *flag.FlagSet) {
		fs.StringVar(&out, "o", "retroboard.xlsx", "output file")
	}); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	snap, err := a.ds.Export(ctx)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := export.Write(f, snap); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %d boards and %d cards to %s\n", len(snap.Boards), len(snap.Cards), out)
	return nil
}
