// Package flow drives the multi-step conversations: detailed password
// generation, adding a manager entry, and saving a generated password.
//
// Each user has at most one active flow. The current step and the fields
// collected so far live in the shared session manager and are discarded on
// completion, cancellation, or process restart. Every step accepts exactly
// one category of input; anything else re-prompts the same step without
// touching the collected fields.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/doxlab/passbot/core/telegram/state"
	"github.com/doxlab/passbot/internal/generator"
)

// Origin identifies which flow a session belongs to.
type Origin string

const (
	OriginDetailed      Origin = "detailed_generation"
	OriginAddPassword   Origin = "add_password"
	OriginSaveGenerated Origin = "save_generated"
)

// Flow steps, one state.State per prompt.
const (
	StepLength      = state.State("flow_length")
	StepClasses     = state.State("flow_classes")
	StepService     = state.State("flow_service")
	StepUsername    = state.State("flow_username")
	StepPassword    = state.State("flow_password")
	StepNotes       = state.State("flow_notes")
	StepDescription = state.State("flow_description")
)

// Session temp keys. lastPassword outlives a flow so the result panel's Save
// button keeps working after the flow that produced it is gone.
const (
	keyOrigin       = "flow_origin"
	keyLength       = "flow_length"
	keyClasses      = "flow_classes"
	keyService      = "flow_service"
	keyUsername     = "flow_username"
	keyPassword     = "flow_password"
	keyLastPassword = "last_password"
)

var (
	// ErrNoGenerated means Save was requested before anything was generated.
	ErrNoGenerated = errors.New("flow: no generated password to save")
	// ErrNoFlow means text input arrived while no flow was active.
	ErrNoFlow = errors.New("flow: no active flow")
)

// Store is the slice of persistence the controller commits through.
type Store interface {
	AppendHistory(ctx context.Context, userID int64, password, generationType string) (int64, error)
	AddManagerEntry(ctx context.Context, userID int64, service, username, password, notes string) (int64, error)
}

// GenerateFunc produces a password for the collected spec.
type GenerateFunc func(length int, classes generator.Classes) (string, error)

// Outcome tells the presenter what to render after an input was applied.
type Outcome struct {
	Step    state.State // next step to prompt; state.StateIdle when the flow ended
	Done    bool        // a flow completed and committed
	Invalid bool        // input rejected; re-prompt Step with Hint
	Hint    string

	Password string            // set when a generation completed
	Length   int               // current detailed-generation length
	Classes  generator.Classes // current detailed-generation classes

	EntryID int64  // set when a manager entry was committed
	Service string // service name of the committed entry
}

// Controller owns per-user flow state and transition logic.
type Controller struct {
	sessions state.Manager
	store    Store
	generate GenerateFunc
}

// New builds a Controller. A nil generate falls back to generator.Generate.
func New(sessions state.Manager, store Store, generate GenerateFunc) *Controller {
	if generate == nil {
		generate = generator.Generate
	}
	return &Controller{sessions: sessions, store: store, generate: generate}
}

// InProgress reports whether the user has an active flow.
func (c *Controller) InProgress(userID int64) bool {
	return c.sessions.HasState(userID)
}

// Current returns the user's current step, or state.StateIdle.
func (c *Controller) Current(userID int64) state.State {
	return c.sessions.GetState(userID)
}

// Origin returns which flow the user is in, if any.
func (c *Controller) Origin(userID int64) (Origin, bool) {
	v, ok := c.sessions.GetTemp(userID, keyOrigin)
	if !ok {
		return "", false
	}
	o, ok := v.(Origin)
	return o, ok
}

// Cancel discards the active flow and its collected fields. The last
// generated password survives so it can still be saved later.
func (c *Controller) Cancel(userID int64) {
	c.clearFlow(userID)
}

// StartDetailed begins the detailed-generation flow, replacing any active flow.
func (c *Controller) StartDetailed(userID int64) Outcome {
	c.clearFlow(userID)
	c.sessions.SetTemp(userID, keyOrigin, OriginDetailed)
	c.sessions.SetTemp(userID, keyClasses, generator.AllClasses())
	c.sessions.SetState(userID, StepLength)
	return Outcome{Step: StepLength}
}

// StartAddPassword begins the add-password flow, replacing any active flow.
func (c *Controller) StartAddPassword(userID int64) Outcome {
	c.clearFlow(userID)
	c.sessions.SetTemp(userID, keyOrigin, OriginAddPassword)
	c.sessions.SetState(userID, StepService)
	return Outcome{Step: StepService}
}

// StartSaveGenerated begins the save flow for the most recently generated
// password. Allowed from any state; the active flow, if any, is replaced.
func (c *Controller) StartSaveGenerated(userID int64) (Outcome, error) {
	if _, ok := c.LastGenerated(userID); !ok {
		return Outcome{Step: state.StateIdle}, ErrNoGenerated
	}
	c.clearFlow(userID)
	c.sessions.SetTemp(userID, keyOrigin, OriginSaveGenerated)
	c.sessions.SetState(userID, StepDescription)
	return Outcome{Step: StepDescription}, nil
}

// RememberGenerated records the password shown on the last result panel.
func (c *Controller) RememberGenerated(userID int64, password string) {
	c.sessions.SetTemp(userID, keyLastPassword, password)
}

// LastGenerated returns the password shown on the last result panel.
func (c *Controller) LastGenerated(userID int64) (string, bool) {
	v, ok := c.sessions.GetTemp(userID, keyLastPassword)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ChooseLength applies a length selection on the length step.
func (c *Controller) ChooseLength(userID int64, n int) (Outcome, error) {
	if c.sessions.GetState(userID) != StepLength {
		return c.reset(userID), ErrNoFlow
	}
	if !generator.ValidLength(n) {
		return Outcome{
			Step:    StepLength,
			Invalid: true,
			Hint:    lengthHint(),
		}, nil
	}
	c.sessions.SetTemp(userID, keyLength, n)
	c.sessions.SetState(userID, StepClasses)
	return Outcome{Step: StepClasses, Length: n, Classes: c.currentClasses(userID)}, nil
}

// ToggleClass flips one character class on the classes step. Turning the last
// class off is allowed here; FinishDetailed rejects an empty selection.
func (c *Controller) ToggleClass(userID int64, class string) (Outcome, error) {
	if c.sessions.GetState(userID) != StepClasses {
		return c.reset(userID), ErrNoFlow
	}
	classes := c.currentClasses(userID)
	switch class {
	case "lower":
		classes.Lower = !classes.Lower
	case "upper":
		classes.Upper = !classes.Upper
	case "digit":
		classes.Digit = !classes.Digit
	case "symbol":
		classes.Symbol = !classes.Symbol
	default:
		return Outcome{Step: StepClasses, Invalid: true, Hint: "Unknown option.", Classes: classes}, nil
	}
	c.sessions.SetTemp(userID, keyClasses, classes)
	return Outcome{Step: StepClasses, Length: c.currentLength(userID), Classes: classes}, nil
}

// FinishDetailed generates with the collected spec, appends history, and ends
// the flow. An empty class selection re-prompts the classes step.
func (c *Controller) FinishDetailed(ctx context.Context, userID int64) (Outcome, error) {
	if c.sessions.GetState(userID) != StepClasses {
		return c.reset(userID), ErrNoFlow
	}
	length := c.currentLength(userID)
	classes := c.currentClasses(userID)
	if classes.Empty() {
		return Outcome{
			Step:    StepClasses,
			Invalid: true,
			Hint:    "Enable at least one character class.",
			Length:  length,
			Classes: classes,
		}, nil
	}

	password, err := c.generate(length, classes)
	if err != nil {
		return c.reset(userID), fmt.Errorf("generate: %w", err)
	}
	if _, err := c.store.AppendHistory(ctx, userID, password, "custom"); err != nil {
		return c.reset(userID), fmt.Errorf("record history: %w", err)
	}

	c.clearFlow(userID)
	c.RememberGenerated(userID, password)
	return Outcome{
		Step:     state.StateIdle,
		Done:     true,
		Password: password,
		Length:   length,
		Classes:  classes,
	}, nil
}

// HandleText applies one line of free text to the current step.
func (c *Controller) HandleText(ctx context.Context, userID int64, text string) (Outcome, error) {
	step := c.sessions.GetState(userID)
	switch step {
	case StepLength:
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return Outcome{Step: StepLength, Invalid: true, Hint: lengthHint()}, nil
		}
		return c.ChooseLength(userID, n)

	case StepClasses:
		return Outcome{
			Step:    StepClasses,
			Invalid: true,
			Hint:    "Use the buttons to toggle character classes.",
			Length:  c.currentLength(userID),
			Classes: c.currentClasses(userID),
		}, nil

	case StepService:
		service := strings.TrimSpace(text)
		if service == "" {
			return Outcome{Step: StepService, Invalid: true, Hint: "Service name cannot be empty."}, nil
		}
		c.sessions.SetTemp(userID, keyService, service)
		c.sessions.SetState(userID, StepUsername)
		return Outcome{Step: StepUsername}, nil

	case StepUsername:
		c.sessions.SetTemp(userID, keyUsername, strings.TrimSpace(text))
		c.sessions.SetState(userID, StepPassword)
		return Outcome{Step: StepPassword}, nil

	case StepPassword:
		if strings.TrimSpace(text) == "" {
			return Outcome{Step: StepPassword, Invalid: true, Hint: "Password cannot be empty."}, nil
		}
		c.sessions.SetTemp(userID, keyPassword, text)
		c.sessions.SetState(userID, StepNotes)
		return Outcome{Step: StepNotes}, nil

	case StepNotes:
		return c.commitManual(ctx, userID, strings.TrimSpace(text))

	case StepDescription:
		description := strings.TrimSpace(text)
		if description == "" {
			return Outcome{Step: StepDescription, Invalid: true, Hint: "Description cannot be empty."}, nil
		}
		return c.commitGenerated(ctx, userID, description)

	case state.StateIdle:
		return Outcome{Step: state.StateIdle}, ErrNoFlow

	default:
		// Unknown step: fall back to idle instead of crashing the dialog.
		return c.reset(userID), ErrNoFlow
	}
}

// Skip advances past an optional field, leaving it empty. Only the username
// and notes steps are skippable.
func (c *Controller) Skip(ctx context.Context, userID int64) (Outcome, error) {
	switch c.sessions.GetState(userID) {
	case StepUsername:
		c.sessions.SetTemp(userID, keyUsername, "")
		c.sessions.SetState(userID, StepPassword)
		return Outcome{Step: StepPassword}, nil
	case StepNotes:
		return c.commitManual(ctx, userID, "")
	default:
		return Outcome{
			Step:    c.sessions.GetState(userID),
			Invalid: true,
			Hint:    "This step cannot be skipped.",
		}, nil
	}
}

func (c *Controller) commitManual(ctx context.Context, userID int64, notes string) (Outcome, error) {
	service := c.tempString(userID, keyService)
	username := c.tempString(userID, keyUsername)
	password := c.tempString(userID, keyPassword)

	id, err := c.store.AddManagerEntry(ctx, userID, service, username, password, notes)
	if err != nil {
		// Storage failure aborts the flow so the user is not stuck mid-dialog.
		return c.reset(userID), fmt.Errorf("commit manager entry: %w", err)
	}
	c.clearFlow(userID)
	return Outcome{Step: state.StateIdle, Done: true, EntryID: id, Service: service}, nil
}

func (c *Controller) commitGenerated(ctx context.Context, userID int64, description string) (Outcome, error) {
	password, ok := c.LastGenerated(userID)
	if !ok {
		return c.reset(userID), ErrNoGenerated
	}
	id, err := c.store.AddManagerEntry(ctx, userID, description, "", password, "")
	if err != nil {
		return c.reset(userID), fmt.Errorf("commit generated entry: %w", err)
	}
	c.clearFlow(userID)
	return Outcome{Step: state.StateIdle, Done: true, EntryID: id, Service: description}, nil
}

func (c *Controller) reset(userID int64) Outcome {
	c.clearFlow(userID)
	return Outcome{Step: state.StateIdle}
}

func (c *Controller) clearFlow(userID int64) {
	c.sessions.ClearState(userID)
	for _, key := range []string{keyOrigin, keyLength, keyClasses, keyService, keyUsername, keyPassword} {
		c.sessions.ClearTemp(userID, key)
	}
}

func (c *Controller) currentClasses(userID int64) generator.Classes {
	if v, ok := c.sessions.GetTemp(userID, keyClasses); ok {
		if classes, ok := v.(generator.Classes); ok {
			return classes
		}
	}
	return generator.AllClasses()
}

func (c *Controller) currentLength(userID int64) int {
	if v, ok := c.sessions.GetTemp(userID, keyLength); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return generator.FastLength
}

func (c *Controller) tempString(userID int64, key string) string {
	if v, ok := c.sessions.GetTemp(userID, key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func lengthHint() string {
	parts := make([]string, len(generator.Lengths))
	for i, n := range generator.Lengths {
		parts[i] = strconv.Itoa(n)
	}
	return "Pick a length: " + strings.Join(parts, ", ") + "."
}
