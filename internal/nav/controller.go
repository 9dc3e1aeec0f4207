package nav

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/drillbook/drillbook/internal/catalog"
	"github.com/drillbook/drillbook/internal/progress"
)

// ErrNotReady means a transition or fetch was attempted before the
// selection fields above it were populated. No request is issued.
var ErrNotReady = errors.New("selection not ready")

// TopicView is the content-level payload: the topic's raw generated text
// and its extracted, normalized sections.
type TopicView struct {
	Topic    string            `json:"topic"`
	Content  string            `json:"content"`
	Sections map[string]string `json:"sections"`
}

// Provider serves the data behind each navigation level. Content is the
// only call expected to be slow; the rest are catalog lookups.
type Provider interface {
	Terms(ctx context.Context) ([]catalog.TermSummary, error)
	Subjects(ctx context.Context, term string) ([]catalog.SubjectSummary, error)
	Units(ctx context.Context, code string) ([]catalog.UnitSummary, error)
	Topics(ctx context.Context, code string, unit int) (catalog.UnitTopics, error)
	Content(ctx context.Context, code string, unit, topicIndex int) (TopicView, error)
}

// Notifier persists a completion record outside the session. Failures are
// logged, never rolled back into the local completion set.
type Notifier interface {
	RecordCompletion(ctx context.Context, rec progress.Record) error
}

// Update is one navigation result delivered on the Updates channel. Exactly
// one of the payload fields is set, matching View.
type Update struct {
	View      View                     `json:"view"`
	Selection Selection                `json:"selection"`
	Terms     []catalog.TermSummary    `json:"terms,omitempty"`
	Subjects  []catalog.SubjectSummary `json:"subjects,omitempty"`
	Units     []catalog.UnitSummary    `json:"units,omitempty"`
	Topics    *catalog.UnitTopics      `json:"topics,omitempty"`
	Content   *TopicView               `json:"content,omitempty"`
	Err       error                    `json:"-"`
}

const notifyTimeout = 10 * time.Second

// Controller owns the current Selection and drives at most one in-flight
// fetch per level. A newer selection at a level supersedes the old fetch;
// superseded responses are discarded by snapshot comparison.
type Controller struct {
	provider Provider
	tracker  *progress.Tracker
	notifier Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	sel      Selection
	inflight map[View]context.CancelFunc
	updates  chan Update
}

// NewController creates a controller at the root selection. Notifier may be
// nil, in which case completions stay session-local.
func NewController(provider Provider, tracker *progress.Tracker, notifier Notifier, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if tracker == nil {
		tracker = progress.NewTracker()
	}
	return &Controller{
		provider: provider,
		tracker:  tracker,
		notifier: notifier,
		logger:   logger,
		inflight: make(map[View]context.CancelFunc),
		updates:  make(chan Update, 16),
	}
}

// Updates returns the channel navigation results arrive on.
func (c *Controller) Updates() <-chan Update {
	return c.updates
}

// Selection returns a copy of the current selection.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// View returns the view derived from the current selection.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.View()
}

// Root resets the selection and reloads the term list.
func (c *Controller) Root() {
	c.mu.Lock()
	c.sel = Selection{}
	snapshot := c.sel
	c.mu.Unlock()
	c.fetch(snapshot)
}

// SelectTerm sets the term and clears everything below it. The sentinel
// catalog.TermAll (or an empty id) collapses back to the root term list.
func (c *Controller) SelectTerm(id string) {
	c.mu.Lock()
	if id == "" || id == catalog.TermAll {
		c.sel = Selection{}
	} else {
		c.sel = Selection{Term: id}
	}
	snapshot := c.sel
	c.mu.Unlock()
	c.fetch(snapshot)
}

// SelectSubject requires a term to be set already.
func (c *Controller) SelectSubject(s SubjectRef) error {
	c.mu.Lock()
	if c.sel.Term == "" {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.sel.Subject = &s
	c.sel.Unit = nil
	c.sel.TopicIndex = nil
	snapshot := c.sel
	c.mu.Unlock()
	c.fetch(snapshot)
	return nil
}

// SelectUnit requires a subject to be set already.
func (c *Controller) SelectUnit(u UnitRef) error {
	c.mu.Lock()
	if c.sel.Subject == nil {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.sel.Unit = &u
	c.sel.TopicIndex = nil
	snapshot := c.sel
	c.mu.Unlock()
	c.fetch(snapshot)
	return nil
}

// SelectTopic requires a unit to be set already.
func (c *Controller) SelectTopic(index int) error {
	c.mu.Lock()
	if c.sel.Unit == nil {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.sel.TopicIndex = &index
	snapshot := c.sel
	c.mu.Unlock()
	c.fetch(snapshot)
	return nil
}

// GoBack clears the deepest populated field and reloads the level that is
// now current. At the root it is a no-op.
func (c *Controller) GoBack() {
	c.mu.Lock()
	switch {
	case c.sel.TopicIndex != nil:
		c.sel.TopicIndex = nil
	case c.sel.Unit != nil:
		c.sel.Unit = nil
	case c.sel.Subject != nil:
		c.sel.Subject = nil
	case c.sel.Term != "":
		c.sel.Term = ""
	default:
		c.mu.Unlock()
		return
	}
	snapshot := c.sel
	c.mu.Unlock()
	c.fetch(snapshot)
}

// MarkCompleted records the currently selected topic as done. The local
// insert always sticks; the notifier runs in the background and its failure
// is only logged.
func (c *Controller) MarkCompleted() error {
	c.mu.Lock()
	if c.sel.Subject == nil || c.sel.Unit == nil || c.sel.TopicIndex == nil {
		c.mu.Unlock()
		return ErrNotReady
	}
	rec := progress.Record{
		SubjectCode: c.sel.Subject.Code,
		UnitNumber:  c.sel.Unit.Number,
		TopicIndex:  *c.sel.TopicIndex,
	}
	c.mu.Unlock()

	if !c.tracker.Add(rec) {
		return nil
	}
	if c.notifier == nil {
		return nil
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := c.notifier.RecordCompletion(ctx, rec); err != nil {
			c.logger.Warn("completion notification failed",
				"code", rec.SubjectCode, "unit", rec.UnitNumber, "topic", rec.TopicIndex,
				"error", err)
		}
	}()
	return nil
}

// IsCompleted reports whether the triple is in the session completion set.
func (c *Controller) IsCompleted(rec progress.Record) bool {
	return c.tracker.IsCompleted(rec)
}

// Completed lists the session's completed topics.
func (c *Controller) Completed() []progress.Record {
	return c.tracker.All()
}

// fetch issues the data request for the snapshot's view, superseding any
// in-flight fetch at the same level.
func (c *Controller) fetch(snapshot Selection) {
	view := snapshot.View()

	c.mu.Lock()
	if cancel, ok := c.inflight[view]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.inflight[view] = cancel
	c.mu.Unlock()

	go func() {
		defer cancel()
		upd := Update{View: view, Selection: snapshot}
		switch view {
		case ViewSemesters:
			upd.Terms, upd.Err = c.provider.Terms(ctx)
		case ViewSubjects:
			upd.Subjects, upd.Err = c.provider.Subjects(ctx, snapshot.Term)
		case ViewUnits:
			upd.Units, upd.Err = c.provider.Units(ctx, snapshot.Subject.Code)
		case ViewTopics:
			var topics catalog.UnitTopics
			topics, upd.Err = c.provider.Topics(ctx, snapshot.Subject.Code, snapshot.Unit.Number)
			if upd.Err == nil {
				upd.Topics = &topics
			}
		case ViewContent:
			var view TopicView
			view, upd.Err = c.provider.Content(ctx, snapshot.Subject.Code, snapshot.Unit.Number, *snapshot.TopicIndex)
			if upd.Err == nil {
				upd.Content = &view
			}
		}
		c.deliver(snapshot, upd)
	}()
}

// deliver applies a fetch result unless the selection moved on while the
// fetch was in flight.
func (c *Controller) deliver(snapshot Selection, upd Update) {
	c.mu.Lock()
	if !snapshot.Equal(c.sel) {
		c.mu.Unlock()
		c.logger.Debug("discarding stale fetch result", "view", upd.View.String())
		return
	}
	c.mu.Unlock()

	select {
	case c.updates <- upd:
	default:
		c.logger.Warn("dropping navigation update, consumer too slow", "view", upd.View.String())
	}
}
