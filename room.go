// Word Wolf
//
// Everyone in a room gets a secret word; one player gets a different one.
// Players talk for a fixed time, asking yes/no questions, then vote on who
// they think holds the odd word.
//
// Features:
// - WebSockets per group: /path/:groupid and /path/:groupid/ws
// - Players identified by cookie (playerID), display names unique per room
// - Players can sit out; the roster for a round is every connected player who isn't
// - Whoever creates the game owns it and drives start/result/continue/finish
// - Countdown ticks, narration cues and mute changes broadcast to the room
// - Chat doubles as the question box once a player presses "ask"
// - Themes can be added per room and are kept in sqlite
// - Empty rooms without a game are reaped after a configurable idle timeout
// - In-browser QR button to share the room, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"maps"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	maxNameLength    = 24
	maxGroupIDLength = 64
	roomEventBuffer  = 256
)

// Member is someone who picked a display name in a room.
type Member struct {
	PlayerID   string
	Name       string
	SittingOut bool
}

// Messages coming from clients
type ClientMessage struct {
	Type    string `json:"type"`              // see Room.command for the game actions
	Name    string `json:"name,omitempty"`    // join
	SitOut  *bool  `json:"sit_out,omitempty"` // sit_out
	Seconds int    `json:"seconds,omitempty"` // start
	Text    string `json:"text,omitempty"`    // chat, add_theme
	Author  string `json:"author,omitempty"`  // answer, question_result
	Choice  string `json:"choice,omitempty"`  // answer: yes, no, unsure
	Target  string `json:"target,omitempty"`  // vote
}

// SessionInfoMessage is sent on connect so the client knows who it is.
type SessionInfoMessage struct {
	Type     string `json:"type"` // "session_info"
	GroupID  string `json:"group_id"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
}

type NamedID struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MemberView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SittingOut bool   `json:"sitting_out"`
	Connected  bool   `json:"connected"`
}

type ScoreView struct {
	Rank int    `json:"rank"`
	ID   string `json:"id"`
	Name string `json:"name"`
	Wins int    `json:"wins"`
}

// StateMessage is the public picture of the room and its game.
type StateMessage struct {
	Type      string            `json:"type"` // "state"
	Members   []MemberView      `json:"members"`
	Active    bool              `json:"active"` // a game exists
	Owner     string            `json:"owner,omitempty"`
	Phase     Phase             `json:"phase,omitempty"`
	Played    int               `json:"played"`
	DeckSize  int               `json:"deck_size"`
	Remaining int               `json:"remaining"`
	Roster    []NamedID         `json:"roster,omitempty"`
	Voted     []string          `json:"voted,omitempty"`
	Questions []QuestionMessage `json:"questions,omitempty"`
	Scores    []ScoreView       `json:"scores,omitempty"`
}

type PhaseMessage struct {
	Type    string `json:"type"` // "phase"
	Cue     Cue    `json:"cue"`
	Seconds int    `json:"seconds,omitempty"`
}

type CountdownMessage struct {
	Type      string `json:"type"` // "countdown"
	Remaining int    `json:"remaining"`
}

type QuestionMessage struct {
	Type       string `json:"type"` // "question"
	Author     string `json:"author"`
	AuthorName string `json:"author_name"`
	Text       string `json:"text"`
}

type AnswerView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Answer string `json:"answer"` // yes, no, unsure or unanswered
}

type QuestionResultMessage struct {
	Type       string       `json:"type"` // "question_result"
	Author     string       `json:"author"`
	AuthorName string       `json:"author_name"`
	Text       string       `json:"text"`
	Answers    []AnswerView `json:"answers"`
}

type TallyView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Word  string `json:"word"`
	Wolf  bool   `json:"wolf"`
	Votes int    `json:"votes"`
}

// ResultMessage is broadcast when the owner reveals the vote.
type ResultMessage struct {
	Type          string                  `json:"type"` // "result"
	Round         int                     `json:"round"`
	WolfWin       bool                    `json:"wolf_win"`
	WolfWord      string                  `json:"wolf_word"`
	Tally         []TallyView             `json:"tally"`
	Questions     []QuestionResultMessage `json:"questions,omitempty"`
	Scores        []ScoreView             `json:"scores"`
	DeckExhausted bool                    `json:"deck_exhausted"`
}

type ScoresMessage struct {
	Type   string      `json:"type"` // "final_scores"
	Scores []ScoreView `json:"scores"`
}

// MuteMessage asks the listed players' clients to mute or unmute voice.
type MuteMessage struct {
	Type    string   `json:"type"` // "mute"
	Muted   bool     `json:"muted"`
	Players []string `json:"players"`
}

type ChatMessage struct {
	Type string `json:"type"` // "chat"
	From string `json:"from"`
	Name string `json:"name"`
	Text string `json:"text"`
}

type RosterWordView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Word string `json:"word"`
	Wolf bool   `json:"wolf"`
}

// WordMessage is private: a player's own word, or every word for spectators.
type WordMessage struct {
	Type   string           `json:"type"` // "word"
	Word   string           `json:"word,omitempty"`
	Roster []RosterWordView `json:"roster,omitempty"`
}

type VoteAckMessage struct {
	Type       string `json:"type"` // "vote_ack"
	Target     string `json:"target"`
	TargetName string `json:"target_name"`
	CanReveal  bool   `json:"can_reveal"`
}

type ErrorMessage struct {
	Type    string   `json:"type"` // "error"
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

// SimpleMessage is for generic notifications ("ask_ready", "theme_added", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

// Events handled by the room goroutine, which is the only writer to client
// send channels.
type stateRefresh struct{}

type countdownEvent struct {
	remaining int
}

type muteEvent struct {
	players []string
	muted   bool
}

type finalScoresEvent struct {
	scores []Score
}

type joinEvent struct {
	client *Client
	name   string
}

type sitOutEvent struct {
	client *Client
	sitOut bool
}

type chatEvent struct {
	from string
	text string
}

type replyEvent struct {
	client  *Client
	cmd     Command
	payload any
}

type errorEvent struct {
	client *Client
	err    error
}

// noticeEvent goes to client, or to everyone when client is nil.
type noticeEvent struct {
	client *Client
	msg    SimpleMessage
}

type themeCatalog interface {
	ThemeSource
	AddTheme(ctx context.Context, groupID, authorID, text string) (WordPair, error)
}

type Room struct {
	id       string
	cfg      *Config
	registry *Registry
	themes   themeCatalog

	clients map[*Client]bool
	members []Member

	register chan *Client
	unreg    chan *Client
	events   chan any
	done     chan struct{}
	stopOnce sync.Once

	mu sync.RWMutex

	lastActive time.Time
}

func newRoom(cfg *Config, groupID string, registry *Registry, themes themeCatalog) *Room {
	return &Room{
		id:         groupID,
		cfg:        cfg,
		registry:   registry,
		themes:     themes,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		events:     make(chan any, roomEventBuffer),
		done:       make(chan struct{}),
		lastActive: time.Now(),
	}
}

func (h *Room) run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true

			name := ""
			if i := h.memberIndexLocked(c.playerID); i >= 0 {
				name = h.members[i].Name
			}

			h.sendLocked(c, SessionInfoMessage{
				Type:     "session_info",
				GroupID:  h.id,
				PlayerID: c.playerID,
				Name:     name,
			})
			h.mu.Unlock()

			h.broadcastState()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

			h.broadcastState()

		case ev := <-h.events:
			h.present(ev)
		}
	}
}

// enqueue is used by the engine while it holds the session lock, so it
// must never block.
func (h *Room) enqueue(ev any) {
	select {
	case h.events <- ev:
	default:
		logf(h.cfg, "GAMES: Dropped %T in %s, event queue full", ev, h.id)
	}
}

// deliver is used by connection goroutines, which may wait for room.
func (h *Room) deliver(ev any) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

func (h *Room) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Room) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

func (h *Room) idleSince() (time.Time, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive, len(h.clients)
}

func (h *Room) present(ev any) {
	switch e := ev.(type) {
	case stateRefresh:
		h.broadcastState()

	case PhaseEvent:
		h.broadcast(PhaseMessage{Type: "phase", Cue: e.Cue, Seconds: e.Seconds})

	case countdownEvent:
		h.broadcast(CountdownMessage{Type: "countdown", Remaining: e.remaining})

	case QuestionView:
		h.mu.RLock()
		msg := h.questionMessageLocked(e)
		h.mu.RUnlock()
		h.broadcast(msg)

	case *RoundResult:
		h.mu.RLock()
		msg := h.resultMessageLocked(e)
		h.mu.RUnlock()
		h.broadcast(msg)

	case finalScoresEvent:
		h.mu.RLock()
		msg := ScoresMessage{Type: "final_scores", Scores: h.scoreViewsLocked(e.scores)}
		h.mu.RUnlock()
		h.broadcast(msg)

	case muteEvent:
		h.broadcast(MuteMessage{Type: "mute", Muted: e.muted, Players: e.players})

	case joinEvent:
		h.handleJoin(e)

	case sitOutEvent:
		h.mu.Lock()
		if i := h.memberIndexLocked(e.client.playerID); i >= 0 {
			h.members[i].SittingOut = e.sitOut
		}
		h.mu.Unlock()
		h.broadcastState()

	case chatEvent:
		h.mu.RLock()
		msg := ChatMessage{Type: "chat", From: e.from, Name: h.nameLocked(e.from), Text: e.text}
		h.mu.RUnlock()
		h.broadcast(msg)

	case replyEvent:
		h.mu.Lock()
		if msg := h.replyMessageLocked(e); msg != nil {
			h.sendLocked(e.client, msg)
		}
		h.mu.Unlock()

	case errorEvent:
		h.mu.Lock()
		h.sendLocked(e.client, h.errorMessageLocked(e.err))
		h.mu.Unlock()

	case noticeEvent:
		if e.client == nil {
			h.broadcast(e.msg)
			break
		}
		h.mu.Lock()
		h.sendLocked(e.client, e.msg)
		h.mu.Unlock()
	}
}

func (h *Room) handleJoin(e joinEvent) {
	name := strings.TrimSpace(e.name)

	h.mu.Lock()

	switch {
	case name == "" || utf8.RuneCountInString(name) > maxNameLength:
		h.sendLocked(e.client, SimpleMessage{
			Type:    "collision",
			Message: "Please choose a name between 1 and 24 characters.",
		})
		h.mu.Unlock()
		return
	case h.nameTakenLocked(name, e.client.playerID):
		h.sendLocked(e.client, SimpleMessage{
			Type:    "collision",
			Message: "That name is already taken. Please choose a different name.",
		})
		h.mu.Unlock()
		return
	}

	if i := h.memberIndexLocked(e.client.playerID); i >= 0 {
		h.members[i].Name = name
	} else {
		h.members = append(h.members, Member{PlayerID: e.client.playerID, Name: name})
		logf(h.cfg, "GAMES: Player %q joined %s", name, h.id)
	}

	h.mu.Unlock()

	h.broadcastState()
}

func (h *Room) nameTakenLocked(name, playerID string) bool {
	for _, m := range h.members {
		if m.PlayerID != playerID && strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

func (h *Room) memberIndexLocked(playerID string) int {
	for i, m := range h.members {
		if m.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (h *Room) connectedLocked(playerID string) bool {
	for c := range h.clients {
		if c.playerID == playerID {
			return true
		}
	}
	return false
}

func (h *Room) nameLocked(playerID string) string {
	if i := h.memberIndexLocked(playerID); i >= 0 {
		return h.members[i].Name
	}
	return "Spectator"
}

func (h *Room) namedLocked(ids []string) []NamedID {
	out := make([]NamedID, 0, len(ids))
	for _, id := range ids {
		out = append(out, NamedID{ID: id, Name: h.nameLocked(id)})
	}
	return out
}

// rosterSnapshot lists connected members who are not sitting out, in join order.
func (h *Room) rosterSnapshot() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roster := make([]string, 0, len(h.members))
	for _, m := range h.members {
		if m.SittingOut || !h.connectedLocked(m.PlayerID) {
			continue
		}
		roster = append(roster, m.PlayerID)
	}
	return roster
}

// broadcastState takes the session snapshot before the room lock; the two
// locks are never held together.
func (h *Room) broadcastState() {
	var st *SessionState
	if sess := h.registry.Get(h.id); sess != nil {
		snapshot := sess.Snapshot()
		st = &snapshot
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	msg := StateMessage{
		Type:    "state",
		Members: make([]MemberView, 0, len(h.members)),
	}

	for _, m := range h.members {
		msg.Members = append(msg.Members, MemberView{
			ID:         m.PlayerID,
			Name:       m.Name,
			SittingOut: m.SittingOut,
			Connected:  h.connectedLocked(m.PlayerID),
		})
	}

	if st != nil {
		msg.Active = true
		msg.Owner = st.OwnerID
		msg.Phase = st.Phase
		msg.Played = st.Played
		msg.DeckSize = st.DeckSize
		msg.Remaining = st.Remaining
		msg.Roster = h.namedLocked(st.Roster)
		msg.Voted = st.Voted
		msg.Scores = h.scoreViewsLocked(st.Scores)
		for _, q := range st.Questions {
			msg.Questions = append(msg.Questions, h.questionMessageLocked(q))
		}
	}

	h.broadcastLocked(msg)
}

func (h *Room) broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.broadcastLocked(msg)
}

func (h *Room) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// sendLocked drops clients that cannot keep up.
func (h *Room) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Room) questionMessageLocked(q QuestionView) QuestionMessage {
	return QuestionMessage{
		Type:       "question",
		Author:     q.Author,
		AuthorName: h.nameLocked(q.Author),
		Text:       q.Text,
	}
}

func (h *Room) questionResultMessageLocked(q *QuestionResult) QuestionResultMessage {
	msg := QuestionResultMessage{
		Type:       "question_result",
		Author:     q.Author,
		AuthorName: h.nameLocked(q.Author),
		Text:       q.Text,
		Answers:    make([]AnswerView, 0, len(q.Answers)),
	}

	for _, a := range q.Answers {
		answer := "unanswered"
		if a.Answered {
			answer = a.Choice.String()
		}
		msg.Answers = append(msg.Answers, AnswerView{ID: a.ID, Name: h.nameLocked(a.ID), Answer: answer})
	}

	return msg
}

func (h *Room) scoreViewsLocked(scores []Score) []ScoreView {
	views := make([]ScoreView, 0, len(scores))
	for i, s := range scores {
		views = append(views, ScoreView{Rank: i + 1, ID: s.ID, Name: h.nameLocked(s.ID), Wins: s.Wins})
	}
	return views
}

func (h *Room) resultMessageLocked(r *RoundResult) ResultMessage {
	msg := ResultMessage{
		Type:          "result",
		Round:         r.Round,
		WolfWin:       r.WolfWin,
		WolfWord:      r.WolfWord,
		Tally:         make([]TallyView, 0, len(r.Tally)),
		Scores:        h.scoreViewsLocked(leaderboard(r.Scores)),
		DeckExhausted: r.DeckExhausted,
	}

	for _, t := range r.Tally {
		msg.Tally = append(msg.Tally, TallyView{
			ID:    t.ID,
			Name:  h.nameLocked(t.ID),
			Word:  t.Word,
			Wolf:  t.Wolf,
			Votes: t.Votes,
		})
	}

	for i := range r.Questions {
		msg.Questions = append(msg.Questions, h.questionResultMessageLocked(&r.Questions[i]))
	}

	return msg
}

// replyMessageLocked renders the private answer to a successful command, or
// nil when the public broadcasts already cover it.
func (h *Room) replyMessageLocked(e replyEvent) any {
	switch p := e.payload.(type) {
	case *WordCheck:
		if p.Participant {
			return WordMessage{Type: "word", Word: p.Word}
		}
		views := make([]RosterWordView, 0, len(p.Roster))
		for _, w := range p.Roster {
			views = append(views, RosterWordView{ID: w.ID, Name: h.nameLocked(w.ID), Word: w.Word, Wolf: w.Wolf})
		}
		return WordMessage{Type: "word", Roster: views}

	case *QuestionResult:
		return h.questionResultMessageLocked(p)

	case *VoteAck:
		return VoteAckMessage{
			Type:       "vote_ack",
			Target:     p.Target,
			TargetName: h.nameLocked(p.Target),
			CanReveal:  p.Owner,
		}
	}

	switch c := e.cmd.(type) {
	case PrepareQuestion:
		return SimpleMessage{Type: "ask_ready", Message: "Type your question in the chat to share it with everyone."}
	case AnswerQuestion:
		return SimpleMessage{Type: "answer_ack", Message: "You answered \"" + c.Choice.String() + "\"."}
	case SubmitQuestion:
		return SimpleMessage{Type: "question_sent", Message: "Your question was sent."}
	}

	return nil
}

func (h *Room) errorMessageLocked(err error) ErrorMessage {
	var ge *GameError
	if !errors.As(err, &ge) {
		logf(h.cfg, "ERROR: %s: %v", h.id, err)
		return ErrorMessage{Type: "error", Kind: "internal", Message: "An error has occurred. Please try again."}
	}

	msg := ErrorMessage{Type: "error", Kind: ge.Kind.String(), Message: ge.Error()}

	if ge.Kind == KindIncompleteVotes {
		for _, id := range ge.Missing {
			msg.Missing = append(msg.Missing, h.nameLocked(id))
		}
		msg.Message = "Still waiting on votes from " + strings.Join(msg.Missing, ", ") + "."
	}

	return msg
}

// command turns a client message into a game command.
func (h *Room) command(c *Client, msg ClientMessage) (Command, error) {
	switch msg.Type {
	case "create":
		return CreateSession{OwnerID: c.playerID}, nil
	case "start":
		return StartRound{CallerID: c.playerID, Seconds: msg.Seconds, Roster: h.rosterSnapshot()}, nil
	case "check_word":
		return CheckWord{CallerID: c.playerID}, nil
	case "ask":
		return PrepareQuestion{CallerID: c.playerID}, nil
	case "answer":
		choice, err := parseAnswerChoice(msg.Choice)
		if err != nil {
			return nil, err
		}
		return AnswerQuestion{CallerID: c.playerID, AuthorID: msg.Author, Choice: choice}, nil
	case "question_result":
		return ShowQuestionResult{CallerID: c.playerID, AuthorID: msg.Author}, nil
	case "vote":
		return CastVote{CallerID: c.playerID, TargetID: msg.Target}, nil
	case "result":
		return GoToResult{CallerID: c.playerID}, nil
	case "continue":
		return ContinueRound{CallerID: c.playerID}, nil
	case "finish":
		return FinishSession{CallerID: c.playerID}, nil
	case "abandon":
		sess := h.registry.Get(h.id)
		if sess == nil {
			return nil, failure(KindSessionNotFound, h.id)
		}
		if sess.OwnerID() != c.playerID {
			return nil, failure(KindNotOwner, "only the session owner can do that")
		}
		return DestroySession{}, nil
	}

	return nil, failure(KindInvalidInput, "unknown message type "+msg.Type)
}

// handle runs on the client's read goroutine.
func (h *Room) handle(ctx context.Context, c *Client, msg ClientMessage) {
	h.touch()

	switch msg.Type {
	case "join":
		h.deliver(joinEvent{client: c, name: msg.Name})
		return

	case "sit_out":
		h.deliver(sitOutEvent{client: c, sitOut: msg.SitOut != nil && *msg.SitOut})
		return

	case "chat":
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return
		}
		if sess := h.registry.Get(h.id); sess != nil && sess.IsQuestionReady(c.playerID) {
			h.dispatch(ctx, c, SubmitQuestion{CallerID: c.playerID, Text: text})
			return
		}
		h.deliver(chatEvent{from: c.playerID, text: text})
		return

	case "add_theme":
		pair, err := h.themes.AddTheme(ctx, h.id, c.playerID, msg.Text)
		if err != nil {
			h.deliver(errorEvent{client: c, err: err})
			return
		}
		logf(h.cfg, "THEME: %s added %q/%q to %s", c.playerID, pair[0], pair[1], h.id)
		h.deliver(noticeEvent{client: c, msg: SimpleMessage{
			Type:    "theme_added",
			Message: "Added \"" + pair[0] + "\" and \"" + pair[1] + "\"; it will be used in the next game.",
		}})
		return
	}

	cmd, err := h.command(c, msg)
	if err != nil {
		h.deliver(errorEvent{client: c, err: err})
		return
	}

	h.dispatch(ctx, c, cmd)
}

func (h *Room) dispatch(ctx context.Context, c *Client, cmd Command) {
	payload, err := h.registry.Dispatch(ctx, h.id, cmd)
	if err != nil {
		h.deliver(errorEvent{client: c, err: err})
		return
	}

	h.deliver(replyEvent{client: c, cmd: cmd, payload: payload})

	if _, ok := cmd.(DestroySession); ok {
		h.deliver(noticeEvent{msg: SimpleMessage{Type: "abandoned", Message: "The game was abandoned."}})
	}

	h.deliver(stateRefresh{})
}

// closeAll disconnects all clients of this room (used by reaper).
func (h *Room) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "wordwolf_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// RoomManager holds a room per group ID and the registry of live games. It
// is the engine's Presenter and MuteController.
type RoomManager struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	cfg         *Config
	registry    *Registry
	themes      themeCatalog
	idleTimeout time.Duration
	done        chan struct{}
	stopOnce    sync.Once
}

func newRoomManager(cfg *Config, themes themeCatalog, opts ...Option) (*RoomManager, error) {
	rm := &RoomManager{
		rooms:       make(map[string]*Room),
		cfg:         cfg,
		themes:      themes,
		idleTimeout: cfg.roomTimeout,
		done:        make(chan struct{}),
	}

	opts = append([]Option{
		WithPresenter(rm),
		WithMuteController(rm),
		WithLogger(engineLogger(cfg)),
	}, opts...)

	registry, err := NewRegistry(themes, opts...)
	if err != nil {
		return nil, err
	}
	rm.registry = registry

	if rm.idleTimeout > 0 {
		go rm.reaperLoop()
	}

	return rm, nil
}

func (rm *RoomManager) stop() {
	rm.stopOnce.Do(func() {
		close(rm.done)

		// sessions unmute through the manager, so the lock can't be held here
		rm.mu.Lock()
		rooms := maps.Clone(rm.rooms)
		rm.mu.Unlock()

		for id, room := range rooms {
			rm.registry.Remove(id)
			room.stop()
		}

		rm.mu.Lock()
		clear(rm.rooms)
		rm.mu.Unlock()
	})
}

func (rm *RoomManager) getRoom(groupID string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if room, ok := rm.rooms[groupID]; ok {
		return room
	}

	room := newRoom(rm.cfg, groupID, rm.registry, rm.themes)
	rm.rooms[groupID] = room
	go room.run()
	return room
}

func (rm *RoomManager) lookup(groupID string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	return rm.rooms[groupID]
}

func (rm *RoomManager) notify(groupID string, ev any) {
	if room := rm.lookup(groupID); room != nil {
		room.enqueue(ev)
	}
}

func (rm *RoomManager) AnnouncePhase(groupID string, ev PhaseEvent) {
	rm.notify(groupID, ev)
}

func (rm *RoomManager) RenderCountdown(groupID string, remaining int) {
	rm.notify(groupID, countdownEvent{remaining: remaining})
}

func (rm *RoomManager) RenderQuestion(groupID string, q QuestionView) {
	rm.notify(groupID, q)
}

func (rm *RoomManager) RenderResult(groupID string, r *RoundResult) {
	rm.notify(groupID, r)
}

func (rm *RoomManager) RenderFinalScores(groupID string, scores []Score) {
	rm.notify(groupID, finalScoresEvent{scores: scores})
}

// SetMuted has no voice channel to drive; it tells the players' browsers instead.
func (rm *RoomManager) SetMuted(groupID string, playerIDs []string, muted bool) error {
	room := rm.lookup(groupID)
	if room == nil {
		return errors.New("no room for group " + groupID)
	}

	room.enqueue(muteEvent{players: playerIDs, muted: muted})

	return nil
}

// newGroupID generates a crypto-random group ID and ensures it doesn't
// collide with existing rooms or games.
func (rm *RoomManager) newGroupID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	const maxByte = byte(255 - (256 % len(letters)))

	for {
		out := make([]byte, 0, 8)
		buf := make([]byte, 16)

		for len(out) < cap(out) {
			if _, err := rand.Read(buf); err != nil {
				panic("crypto/rand failure: " + err.Error())
			}
			for _, b := range buf {
				if b <= maxByte && len(out) < cap(out) {
					out = append(out, letters[int(b)%len(letters)])
				}
			}
		}
		id := string(out)

		if rm.lookup(id) == nil && rm.registry.Get(id) == nil {
			return id
		}
	}
}

// reaperLoop periodically closes rooms that are empty, have no game, and
// have been idle longer than idleTimeout.
func (rm *RoomManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-rm.done:
			return
		case <-ticker.C:
			rm.reap(time.Now().Add(-rm.idleTimeout))
		}
	}
}

func (rm *RoomManager) reap(cutoff time.Time) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for id, room := range rm.rooms {
		last, clients := room.idleSince()
		if clients > 0 || !last.Before(cutoff) || rm.registry.Get(id) != nil {
			continue
		}

		delete(rm.rooms, id)
		room.stop()
		logf(rm.cfg, "GAMES: Closed idle room %s", id)
	}
}

func validGroupID(id string) bool {
	return id != "" && len(id) <= maxGroupIDLength && !strings.ContainsAny(id, "/?#")
}

// WebSocket handler that picks the room based on :groupid
func serveWSForManager(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		groupID := ps.ByName("groupid")
		if !validGroupID(groupID) {
			http.Error(w, "invalid group id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		room := rm.getRoom(groupID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: websocket upgrade for %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 32),
			playerID: playerID,
		}

		select {
		case room.register <- client:
		case <-room.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(r.Context(), room)
	}
}

func (c *Client) readPump(ctx context.Context, h *Room) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		h.handle(ctx, c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !validGroupID(ps.ByName("groupid")) {
		http.Error(w, "invalid group id", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validGroupID(ps.ByName("groupid")) {
			http.NotFound(w, r)
			return
		}

		data, err := assets.ReadFile(path.Join("assets", "wordwolf", "index.html"))
		if err != nil {
			http.Error(w, "missing client", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(data)
	}
}

// redirectNewGame handles GET /path by generating a new random group ID
// and redirecting to /path/:groupid.
func redirectNewGame(cfg *Config, path string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		groupID := rm.newGroupID()
		logf(cfg, "GAMES: New room %s%s/%s for %s", cfg.prefix, path, groupID, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+groupID, http.StatusTemporaryRedirect)
	}
}

// registerWordWolfGame sets up routes so that:
//   - $path                  → redirects to a new random room (8-char ID)
//   - $path/:groupid         → HTML client
//   - $path/:groupid/ws      → WebSocket for that room
//   - $path/:groupid/qr      → PNG QR code for that room URL
func registerWordWolfGame(cfg *Config, path string, mux *httprouter.Router, rm *RoomManager) {
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, rm))

	mux.GET(cfg.prefix+path+"/:groupid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:groupid/ws", serveWSForManager(cfg, rm))

	mux.GET(cfg.prefix+path+"/:groupid/qr", qrHandler)
}
