package event

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bobylevd/dart-ranking/app/draw"
	"github.com/bobylevd/dart-ranking/app/rating"
	"github.com/bobylevd/dart-ranking/app/report"
	"github.com/bobylevd/dart-ranking/app/store"
)

// Discord is a handler for Discord commands.
type Discord struct {
	Token          string
	AdminIDs       []string
	Service        *store.Service
	HandlerTimeout time.Duration
	se             *discordgo.Session
}

// command handles a single chat command and returns the reply.
type command func(ctx context.Context, args []string) (reply string, err error)

// recentMatches is the number of log entries shown by !matches by default.
const recentMatches = 10

// Run runs the Discord handler.
// Blocking call.
func (d *Discord) Run(ctx context.Context) error {
	if d.HandlerTimeout == 0 {
		d.HandlerTimeout = 5 * time.Second
	}

	se, err := discordgo.New(fmt.Sprintf("Bot %s", d.Token))
	if err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	d.se = se
	d.se.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	d.se.AddHandler(d.onMessage)

	log.Printf("[INFO] opening discord session")
	if err := d.se.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	<-ctx.Done()

	log.Printf("[WARN] stopping bot with reason: %v", context.Cause(ctx))
	if err := d.se.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}

	return nil
}

func (d *Discord) onMessage(s *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author.ID == s.State.User.ID {
		return // ignore messages from the bot
	}

	log.Printf("[DEBUG] received message from %s: %s", msg.ChannelID, msg.Content)

	content := strings.TrimSpace(msg.Content)
	if content == "" || !strings.HasPrefix(content, "!") {
		return // do nothing
	}

	fields := strings.Fields(content)
	cmd := d.route(fields[0], msg.Author.ID)
	if cmd == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.HandlerTimeout)
	defer cancel()

	ctx = context.WithValue(ctx, senderIDKey{}, msg.Author.ID)

	replyTo := &discordgo.MessageReference{MessageID: msg.ID, ChannelID: msg.ChannelID}
	reply, err := cmd(ctx, fields[1:])
	if err != nil {
		log.Printf("[WARN] failed to execute command %s from %s: %v", fields[0], senderID(ctx), err)
		reply = "failed to execute command, check logs"
	}
	if _, err = s.ChannelMessageSendReply(msg.ChannelID, reply, replyTo); err != nil {
		log.Printf("[WARN] failed to send message: %v", err)
	}
}

// route returns the handler of the command, nil for unknown commands and
// for admin commands sent by anyone else.
func (d *Discord) route(name, authorID string) command {
	switch name {
	case "!rank":
		return d.rank
	case "!player":
		return d.player
	case "!matches":
		return d.matches
	case "!draw":
		return d.draw
	case "!ping":
		return d.ping
	case "!help":
		return d.help
	}

	if !d.isAdmin(authorID) {
		return nil
	}

	switch name {
	case "!register":
		return d.register
	case "!match":
		return d.addMatch
	case "!edit":
		return d.editMatch
	case "!delete":
		return d.deleteMatch
	case "!recompute":
		return d.recompute
	}

	return nil
}

func (d *Discord) rank(ctx context.Context, _ []string) (string, error) {
	ranks, err := d.Service.Ranking(ctx)
	if err != nil {
		return "", fmt.Errorf("ranking: %w", err)
	}
	if len(ranks) == 0 {
		return "no players registered yet", nil
	}
	return codeBlock(report.Ranking(ranks)), nil
}

func (d *Discord) player(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "usage: !player <name>", nil
	}

	st, err := d.Service.PlayerStats(ctx, args[0])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("player %s not found", args[0]), nil
		}
		return "", fmt.Errorf("player stats: %w", err)
	}

	return codeBlock(report.Stats(st)), nil
}

func (d *Discord) matches(ctx context.Context, args []string) (string, error) {
	n := recentMatches
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return "usage: !matches [count]", nil
		}
		n = v
	}

	matches, err := d.Service.Matches(ctx)
	if err != nil {
		return "", fmt.Errorf("list matches: %w", err)
	}

	// keep the log index of the shown entries, !edit and !delete refer to it
	from := max(0, len(matches)-n)
	return codeBlock(report.MatchesFrom(matches[from:], from)), nil
}

func (d *Discord) draw(ctx context.Context, args []string) (string, error) {
	if len(args) < 3 {
		return "usage: !draw <opponents> <player1> <player2> ...", nil
	}

	opponents, err := strconv.Atoi(args[0])
	if err != nil {
		return "usage: !draw <opponents> <player1> <player2> ...", nil
	}

	schedule, err := d.Service.Draw(ctx, args[1:], opponents)
	if err != nil {
		var missing store.ErrUnknownPlayers
		switch {
		case errors.As(err, &missing):
			return missing.Error(), nil
		case errors.Is(err, draw.ErrNotEnoughPlayers), errors.Is(err, draw.ErrInvalid):
			return fmt.Sprintf("can't draw: %v", err), nil
		case errors.Is(err, draw.ErrNoSchedule):
			return "no valid draw found, try another number of opponents or players", nil
		}
		return "", fmt.Errorf("draw: %w", err)
	}

	return codeBlock(report.Schedule(schedule)), nil
}

func (d *Discord) register(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "usage: !register <name>", nil
	}

	pl, err := d.Service.Register(ctx, args[0])
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) || errors.Is(err, store.ErrInvalidName) {
			return "invalid or already registered name", nil
		}
		return "", fmt.Errorf("register player: %w", err)
	}

	return fmt.Sprintf("player %s registered with rating %d", pl.Name, pl.Rating), nil
}

func (d *Discord) addMatch(ctx context.Context, args []string) (string, error) {
	m, err := parseMatch(args)
	if err != nil {
		return fmt.Sprintf("%v\nusage: !match <playerA> <playerB> <legsA>:<legsB> [avgA] [avgB] [round]", err), nil
	}

	m, err = d.Service.AddMatch(ctx, m)
	if err != nil {
		if reply, ok := rejection(err); ok {
			return reply, nil
		}
		return "", fmt.Errorf("add match: %w", err)
	}

	return report.Recorded(m), nil
}

func (d *Discord) editMatch(ctx context.Context, args []string) (string, error) {
	const usage = "usage: !edit <index> <playerA> <playerB> <legsA>:<legsB> [avgA] [avgB] [round]"
	if len(args) < 1 {
		return usage, nil
	}

	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return usage, nil
	}

	m, err := parseMatch(args[1:])
	if err != nil {
		return fmt.Sprintf("%v\n%s", err, usage), nil
	}

	m, err = d.Service.UpdateMatch(ctx, idx, m)
	if err != nil {
		if reply, ok := rejection(err); ok {
			return reply, nil
		}
		return "", fmt.Errorf("edit match: %w", err)
	}

	return fmt.Sprintf("match #%d updated: %s", idx, report.Recorded(m)), nil
}

func (d *Discord) deleteMatch(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "usage: !delete <index>", nil
	}

	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return "usage: !delete <index>", nil
	}

	m, err := d.Service.DeleteMatch(ctx, idx)
	if err != nil {
		if reply, ok := rejection(err); ok {
			return reply, nil
		}
		return "", fmt.Errorf("delete match: %w", err)
	}

	return fmt.Sprintf("match #%d %s deleted, ratings recomputed", idx, m), nil
}

func (d *Discord) recompute(ctx context.Context, _ []string) (string, error) {
	if err := d.Service.Recompute(ctx); err != nil {
		return "", fmt.Errorf("recompute: %w", err)
	}
	return "ratings recomputed", nil
}

// rejection returns the reply for errors caused by the user input.
func rejection(err error) (string, bool) {
	var missing store.ErrUnknownPlayers
	switch {
	case errors.As(err, &missing):
		return missing.Error(), true
	case errors.Is(err, store.ErrInvalidMatch), errors.Is(err, store.ErrNotFound):
		return err.Error(), true
	}
	return "", false
}

// parseMatch parses "<playerA> <playerB> <legsA>:<legsB> [avgA] [avgB] [round]".
func parseMatch(args []string) (store.Match, error) {
	if len(args) < 3 {
		return store.Match{}, errors.New("not enough arguments")
	}

	legsA, legsB, ok := strings.Cut(args[2], ":")
	if !ok {
		return store.Match{}, fmt.Errorf("bad legs %q, expected <legsA>:<legsB>", args[2])
	}

	m := store.Match{Game: rating.Game{PlayerA: args[0], PlayerB: args[1], AvgA: 50, AvgB: 50}}

	var err error
	if m.LegsA, err = strconv.Atoi(legsA); err != nil {
		return store.Match{}, fmt.Errorf("bad legs of %s: %q", m.PlayerA, legsA)
	}
	if m.LegsB, err = strconv.Atoi(legsB); err != nil {
		return store.Match{}, fmt.Errorf("bad legs of %s: %q", m.PlayerB, legsB)
	}

	if len(args) > 3 {
		if m.AvgA, err = parseAverage(args[3]); err != nil {
			return store.Match{}, err
		}
	}
	if len(args) > 4 {
		if m.AvgB, err = parseAverage(args[4]); err != nil {
			return store.Match{}, err
		}
	}
	if len(args) > 5 {
		m.Round = strings.Join(args[5:], " ")
	}

	return m, nil
}

// parseAverage accepts both decimal separators.
func parseAverage(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("bad average %q", s)
	}
	return v, nil
}

func (d *Discord) isAdmin(discordID string) bool {
	for _, id := range d.AdminIDs {
		if discordID == id {
			return true
		}
	}
	return false
}

func (d *Discord) ping(context.Context, []string) (string, error) { return "pong!", nil }

func (d *Discord) help(context.Context, []string) (reply string, err error) {
	return `
!rank - current ranking
!player <name> - season summary of a player
!matches [count] - latest matches with their index
!draw <opponents> <player1> <player2> ... - draw the pairings of the evening
!register <name> - admins only, registers a new player
!match <playerA> <playerB> <legsA>:<legsB> [avgA] [avgB] [round] - admins only, records a match
!edit <index> <playerA> <playerB> <legsA>:<legsB> [avgA] [avgB] [round] - admins only, replaces a match
!delete <index> - admins only, deletes a match
!recompute - admins only, replays the season
!ping - pong!
!help - this message
	`, nil
}

func codeBlock(s string) string {
	return "```\n" + s + "\n```"
}

type senderIDKey struct{}

func senderID(ctx context.Context) string {
	if v := ctx.Value(senderIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}
