// Package bot turns chat updates into replies. It knows nothing about any
// messaging platform: a gateway posts Update values and relays the returned
// Reply values back to the chat.
package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/services"
	"github.com/vytor/linguatrack/internal/srs"
)

// Main keyboard labels.
const (
	ButtonToday    = "Cards for today"
	ButtonTest     = "Test"
	ButtonProgress = "Statistics"
	ButtonCards    = "My cards"
	ButtonAdd      = "Add card"
	ButtonSay      = "Say word"
)

const (
	callbackTestStart = "test_start"
	callbackShow      = "test_show_"
	callbackQuality   = "quality_"

	cardsListLimit = 10
)

// Update is one incoming chat event: either a text message or a button press.
type Update struct {
	ChatID   int64  `json:"chat_id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Text     string `json:"text,omitempty"`
	Callback string `json:"callback,omitempty"`
}

// Button is an inline button; Data comes back as Update.Callback when pressed.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Reply is one outgoing message. Text is HTML.
type Reply struct {
	Text         string     `json:"text"`
	Buttons      [][]Button `json:"buttons,omitempty"`
	MainKeyboard bool       `json:"main_keyboard,omitempty"`
}

// MainKeyboard lists the persistent reply keyboard, row by row.
var MainKeyboard = [][]string{
	{ButtonToday, ButtonTest},
	{ButtonProgress, ButtonCards},
	{ButtonAdd, ButtonSay},
}

// Dispatcher routes updates to handlers.
type Dispatcher struct {
	profiles     services.ProfileService
	cards        services.CardService
	reviews      services.ReviewService
	stats        services.StatsService
	sessions     SessionStore
	previewLimit int
}

func NewDispatcher(
	profiles services.ProfileService,
	cards services.CardService,
	reviews services.ReviewService,
	stats services.StatsService,
	sessions SessionStore,
	previewLimit int,
) *Dispatcher {
	if previewLimit <= 0 {
		previewLimit = 10
	}
	return &Dispatcher{
		profiles:     profiles,
		cards:        cards,
		reviews:      reviews,
		stats:        stats,
		sessions:     sessions,
		previewLimit: previewLimit,
	}
}

// Handle processes one update. Errors meant for the user are turned into
// replies; only unexpected failures are returned.
func (d *Dispatcher) Handle(ctx context.Context, u Update) ([]Reply, error) {
	session := d.sessions.Load(u.ChatID)
	log := logger.FromContext(ctx).WithPrefix("bot").WithFields(map[string]any{
		"chat_id": u.ChatID,
		"session": session.ID,
	})
	ctx = logger.NewContext(ctx, log)
	log.Debug("handling update: text=%q callback=%q state=%s", u.Text, u.Callback, session.State)

	profile, err := d.ensureProfile(ctx, u)
	if err != nil {
		return nil, err
	}

	var replies []Reply
	if u.Callback != "" {
		replies, err = d.handleCallback(ctx, profile, u.Callback)
	} else {
		replies, err = d.handleText(ctx, profile, session, strings.TrimSpace(u.Text))
	}
	d.sessions.Save(session)
	if err != nil {
		if appErr := errors.As(err); appErr.Code != errors.ErrCodeInternal {
			return []Reply{{Text: html.EscapeString(appErr.Message), MainKeyboard: true}}, nil
		}
		log.Error("update failed: %v", err)
		return nil, err
	}
	return replies, nil
}

// ensureProfile returns the profile owned by the chat. On first contact a new
// profile is created for it; the reported username is display-only.
func (d *Dispatcher) ensureProfile(ctx context.Context, u Update) (*models.Profile, error) {
	profile, err := d.profiles.GetProfileByChat(ctx, u.ChatID)
	if err == nil {
		return profile, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = strings.TrimSpace(u.Username)
	}
	profile, err = d.profiles.ProfileForChat(ctx, u.ChatID, name)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("chat owns profile %d (%s)", profile.ID, profile.Username)
	return profile, nil
}

func (d *Dispatcher) handleText(ctx context.Context, p *models.Profile, s *Session, text string) ([]Reply, error) {
	command, args := splitCommand(text)

	// A command or menu button always wins over a pending state.
	switch {
	case command == "/start":
		s.State = StateIdle
		return d.start(p), nil
	case command == "/today" || text == ButtonToday:
		s.State = StateIdle
		return d.today(ctx, p)
	case command == "/test" || text == ButtonTest:
		s.State = StateIdle
		return d.test(ctx, p)
	case command == "/progress" || text == ButtonProgress:
		s.State = StateIdle
		return d.progress(ctx, p)
	case command == "/cards" || text == ButtonCards:
		s.State = StateIdle
		return d.listCards(ctx, p)
	case command == "/add":
		s.State = StateIdle
		return d.addCard(ctx, p, args)
	case text == ButtonAdd:
		s.State = StateAwaitingCard
		return []Reply{{Text: addFormatHelp}}, nil
	case command == "/say":
		s.State = StateIdle
		return d.say(args), nil
	case text == ButtonSay:
		s.State = StateAwaitingWord
		return []Reply{{Text: "Send the word you want to hear:"}}, nil
	case strings.HasPrefix(text, "/"):
		return []Reply{{Text: "Unknown command.\n\n" + helpText, MainKeyboard: true}}, nil
	}

	switch s.State {
	case StateAwaitingCard:
		s.State = StateIdle
		return d.addCard(ctx, p, text)
	case StateAwaitingWord:
		s.State = StateIdle
		return d.say(text), nil
	}

	if strings.ContainsAny(text, "|/") {
		return d.addCard(ctx, p, text)
	}
	return []Reply{{Text: helpText, MainKeyboard: true}}, nil
}

func (d *Dispatcher) handleCallback(ctx context.Context, p *models.Profile, data string) ([]Reply, error) {
	switch {
	case data == callbackTestStart:
		return d.test(ctx, p)
	case strings.HasPrefix(data, callbackShow):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, callbackShow), 10, 64)
		if err != nil {
			return nil, errors.NewBadRequestError("invalid button")
		}
		return d.showAnswer(ctx, p, id)
	case strings.HasPrefix(data, callbackQuality):
		parts := strings.Split(strings.TrimPrefix(data, callbackQuality), "_")
		if len(parts) != 2 {
			return nil, errors.NewBadRequestError("invalid button")
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, errors.NewBadRequestError("invalid button")
		}
		q, err := srs.ParseQuality(parts[1])
		if err != nil {
			return nil, errors.NewBadRequestError("invalid button")
		}
		return d.submitQuality(ctx, p, id, q)
	}
	return nil, errors.NewBadRequestError("unknown button")
}

const helpText = "Commands:\n" +
	"/today - cards due today\n" +
	"/test - quick quiz\n" +
	"/progress - your statistics\n" +
	"/cards - your latest cards\n" +
	"/add word | translation - add a card"

const addFormatHelp = "Send the card as:\n" +
	"<b>word | translation</b> or <b>word / translation</b>\n\n" +
	"Example: <code>hello | привет</code> or <code>hello / привет</code>"

func (d *Dispatcher) start(p *models.Profile) []Reply {
	return []Reply{{
		Text:         fmt.Sprintf("Hi, %s!\n\nI am the LinguaTrack bot for learning foreign words.\n\nUse the buttons below to get around.", html.EscapeString(p.Name())),
		MainKeyboard: true,
	}}
}

func (d *Dispatcher) today(ctx context.Context, p *models.Profile) ([]Reply, error) {
	due, err := d.reviews.Today(ctx, p.ID, 0)
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return []Reply{{Text: "Great! You have no cards to review today.", MainKeyboard: true}}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cards for today (%d):\n\n", len(due))
	for i, c := range due {
		if i == d.previewLimit {
			break
		}
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, html.EscapeString(c.Word), html.EscapeString(c.Translation))
	}
	if len(due) > d.previewLimit {
		fmt.Fprintf(&b, "\n... and %d more", len(due)-d.previewLimit)
	}
	return []Reply{{
		Text:    b.String(),
		Buttons: [][]Button{{{Text: "Start test", Data: callbackTestStart}}},
	}}, nil
}

func (d *Dispatcher) test(ctx context.Context, p *models.Profile) ([]Reply, error) {
	next, err := d.reviews.Next(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return []Reply{{Text: "No cards to test. Add some with the '" + ButtonAdd + "' button.", MainKeyboard: true}}, nil
	}
	return []Reply{question("How do you translate:", next)}, nil
}

func question(prompt string, c *models.CardWithSchedule) Reply {
	return Reply{
		Text:    fmt.Sprintf("%s\n\n<b>%s</b>", prompt, html.EscapeString(c.Word)),
		Buttons: [][]Button{{{Text: "Show answer", Data: fmt.Sprintf("%s%d", callbackShow, c.ID)}}},
	}
}

func (d *Dispatcher) showAnswer(ctx context.Context, p *models.Profile, cardID int64) ([]Reply, error) {
	card, err := d.cards.GetCard(ctx, p.ID, cardID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> = %s\n\n", html.EscapeString(card.Word), html.EscapeString(card.Translation))
	if card.Example != "" {
		fmt.Fprintf(&b, "Example: %s\n\n", html.EscapeString(card.Example))
	}
	b.WriteString("How well did you know this word?")

	button := func(label string, q int) Button {
		return Button{Text: label, Data: fmt.Sprintf("%s%d_%d", callbackQuality, cardID, q)}
	}
	return []Reply{{
		Text: b.String(),
		Buttons: [][]Button{
			{button("0", 0), button("1", 1)},
			{button("3", 3), button("5", 5)},
		},
	}}, nil
}

func (d *Dispatcher) submitQuality(ctx context.Context, p *models.Profile, cardID int64, q srs.Quality) ([]Reply, error) {
	if _, err := d.reviews.Review(ctx, p.ID, cardID, int(q)); err != nil {
		return nil, err
	}

	next, err := d.reviews.Next(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return []Reply{{Text: "Answer saved!\n\nAll cards for today are done!", MainKeyboard: true}}, nil
	}
	return []Reply{question("Answer saved!\n\nNext word:", next)}, nil
}

func (d *Dispatcher) progress(ctx context.Context, p *models.Profile) ([]Reply, error) {
	st, err := d.stats.GetUserStats(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("<b>Your statistics:</b>\n\n"+
		"Total words: %d\n"+
		"Learned: %d\n"+
		"Reviews: %d\n"+
		"Mistakes: %d\n"+
		"Success rate: %.2f%%\n"+
		"Due today: %d cards",
		st.TotalWords, st.LearnedWords, st.TotalReviews, st.WrongAnswers, st.SuccessRate, st.DueToday)
	return []Reply{{Text: text, MainKeyboard: true}}, nil
}

func (d *Dispatcher) listCards(ctx context.Context, p *models.Profile) ([]Reply, error) {
	cards, total, err := d.cards.ListCards(ctx, models.CardFilter{ProfileID: p.ID, Limit: cardsListLimit})
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return []Reply{{Text: "You have no cards yet. Add one with the '" + ButtonAdd + "' button.", MainKeyboard: true}}, nil
	}

	var b strings.Builder
	b.WriteString("Your cards:\n\n")
	for i, c := range cards {
		fmt.Fprintf(&b, "%d. %s - %s [%s]\n", i+1, html.EscapeString(c.Word), html.EscapeString(c.Translation), c.Level)
	}
	if total > len(cards) {
		fmt.Fprintf(&b, "\n... and %d more", total-len(cards))
	}
	return []Reply{{Text: b.String(), MainKeyboard: true}}, nil
}

// parseCardText splits "word | translation" or "word / translation". The
// pipe wins when both separators are present.
func parseCardText(text string) (word, translation string, ok bool) {
	sep := "|"
	if !strings.Contains(text, sep) {
		sep = "/"
	}
	word, translation, found := strings.Cut(text, sep)
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(word), strings.TrimSpace(translation), true
}

func (d *Dispatcher) addCard(ctx context.Context, p *models.Profile, text string) ([]Reply, error) {
	word, translation, ok := parseCardText(text)
	if !ok {
		return []Reply{{Text: "Wrong format!\n\n" + addFormatHelp, MainKeyboard: true}}, nil
	}
	if word == "" || translation == "" {
		return []Reply{{Text: "Word and translation cannot be empty!", MainKeyboard: true}}, nil
	}

	card, err := d.cards.CreateCard(ctx, p.ID, services.CardInput{Word: word, Translation: translation})
	if err != nil {
		return nil, err
	}
	return []Reply{{
		Text:         fmt.Sprintf("Card added!\n\n<b>%s</b> - %s", html.EscapeString(card.Word), html.EscapeString(card.Translation)),
		MainKeyboard: true,
	}}, nil
}

// say answers pronunciation requests. Audio synthesis is not part of this
// service, so the gateway only gets the normalized word back.
func (d *Dispatcher) say(word string) []Reply {
	word = strings.TrimSpace(word)
	if word == "" || len(strings.Fields(word)) != 1 {
		return []Reply{{Text: "Please send a single word.", MainKeyboard: true}}
	}
	return []Reply{{Text: fmt.Sprintf("Pronunciation is not available, but here is your word: <b>%s</b>", html.EscapeString(word)), MainKeyboard: true}}
}

func splitCommand(text string) (command, args string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	command, args, _ = strings.Cut(text, " ")
	// Group chats append the bot name: /today@linguatrack_bot
	command, _, _ = strings.Cut(command, "@")
	return strings.ToLower(command), strings.TrimSpace(args)
}
