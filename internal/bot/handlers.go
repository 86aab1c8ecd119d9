// Package bot maps Telegram updates onto the generator, the flows, and the
// store. It renders menus and owns no domain logic of its own.
package bot

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/doxlab/passbot/core/buildinfo"
	tg "github.com/doxlab/passbot/core/telegram"
	"github.com/doxlab/passbot/core/telegram/callbacks"
	"github.com/doxlab/passbot/core/telegram/commands"
	tghelpers "github.com/doxlab/passbot/core/telegram/helpers"
	"github.com/doxlab/passbot/core/telegram/state"
	"github.com/doxlab/passbot/internal/flow"
	"github.com/doxlab/passbot/internal/generator"
	"github.com/doxlab/passbot/internal/service"
	"github.com/doxlab/passbot/internal/storage"
)

const genericFailure = "⚠️ Something went wrong, please try again."

// Handlers wires the bot surface: commands, callbacks, and flow steps.
type Handlers struct {
	svc      *service.PasswordService
	flows    *flow.Controller
	fallback *Fallback
}

func New(svc *service.PasswordService, flows *flow.Controller) *Handlers {
	return &Handlers{svc: svc, flows: flows, fallback: NewFallback(svc)}
}

// Fallback returns the shared fallback provider, also installed on the
// registry by Register.
func (h *Handlers) Fallback() *Fallback {
	return h.fallback
}

// Register binds every command, callback, and flow step handler.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Main menu",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     h.Help,
		Description: "How to use the bot",
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     h.Stats,
		Description: "Usage counters",
	})
	reg.RegisterCommand("/debug", commands.Command{
		Handler:     h.Debug,
		Description: "Runtime state",
		Hidden:      true,
	})

	for key, handler := range map[string]tele.HandlerFunc{
		cbFast:         h.GenerateFast,
		cbDetailed:     h.StartDetailed,
		cbLength:       h.PickLength,
		cbClass:        h.ToggleClass,
		cbGenerate:     h.GenerateDetailed,
		cbAgain:        h.GenerateAgain,
		cbSave:         h.SaveGenerated,
		cbMainMenu:     h.MainMenu,
		cbHistoryPage:  h.HistoryPage,
		cbHistoryClear: h.ClearHistory,
		cbManagerPage:  h.ManagerPage,
		cbManagerDel:   h.DeleteEntry,
		cbAddPassword:  h.StartAddPassword,
		cbFlowSkip:     h.SkipStep,
		cbFlowCancel:   h.CancelFlow,
	} {
		_ = reg.RegisterCallback(key, handler)
	}

	reg.SetTextFallback(h.fallback.UnknownText())
	reg.SetCallbackNotFound(h.fallback.UnknownCallback())

	for _, step := range []state.State{
		flow.StepLength,
		flow.StepClasses,
		flow.StepService,
		flow.StepUsername,
		flow.StepPassword,
		flow.StepNotes,
		flow.StepDescription,
	} {
		state.RegisterHandler(step, h.FlowText)
	}
}

func (h *Handlers) Start(c tele.Context) error {
	h.flows.Cancel(c.Sender().ID)
	return tghelpers.SendMD(c, mainMenuText(), mainMenuMarkup())
}

func (h *Handlers) Help(c tele.Context) error {
	return tghelpers.SendMD(c, helpText())
}

func (h *Handlers) MainMenu(c tele.Context) error {
	h.flows.Cancel(c.Sender().ID)
	return tghelpers.EditOrSendMD(c, mainMenuText(), mainMenuMarkup())
}

func (h *Handlers) Stats(c tele.Context) error {
	stats, err := h.svc.Stats(tghelpers.BuildContext(c))
	if err != nil {
		return tghelpers.SendText(c, genericFailure)
	}
	text := fmt.Sprintf("📊 *Stats*\n\nHistory entries: %d\nManager entries: %d\nUsers: %d",
		stats.HistoryTotal, stats.ManagerTotal, stats.UsersTotal)
	return tghelpers.SendMD(c, text)
}

func (h *Handlers) Debug(c tele.Context) error {
	userID := c.Sender().ID
	step := h.flows.Current(userID)
	origin, _ := h.flows.Origin(userID)
	if origin == "" {
		origin = "-"
	}
	text := fmt.Sprintf("🛠 version %s (%s)\nflow: %s\nstep: %s",
		buildinfo.Version, buildinfo.Commit, origin, step)
	return tghelpers.SendText(c, text)
}

// GenerateFast produces the one-tap preset and shows the result panel.
func (h *Handlers) GenerateFast(c tele.Context) error {
	userID := c.Sender().ID
	password, err := h.svc.GenerateFast(tghelpers.BuildContext(c), userID)
	if err != nil {
		return tghelpers.SendText(c, genericFailure)
	}
	h.flows.RememberGenerated(userID, password)
	return tghelpers.EditOrSendMD(c,
		resultText(password, generator.FastLength, generator.AllClasses()),
		resultMarkup(specFast),
	)
}

// GenerateAgain repeats the spec carried in the callback payload.
func (h *Handlers) GenerateAgain(c tele.Context) error {
	payload := callbacks.CallbackPayload(c)
	if payload == specFast {
		return h.GenerateFast(c)
	}
	length, classes, err := decodeSpec(payload)
	if err != nil {
		return tghelpers.SendText(c, genericFailure)
	}

	userID := c.Sender().ID
	password, err := h.svc.GenerateCustom(tghelpers.BuildContext(c), userID, length, classes)
	if err != nil {
		return tghelpers.SendText(c, genericFailure)
	}
	h.flows.RememberGenerated(userID, password)
	return tghelpers.EditOrSendMD(c,
		resultText(password, length, classes),
		resultMarkup(payload),
	)
}

func (h *Handlers) StartDetailed(c tele.Context) error {
	out := h.flows.StartDetailed(c.Sender().ID)
	return h.render(c, out, true)
}

func (h *Handlers) PickLength(c tele.Context) error {
	n, err := callbacks.PayloadInt(c)
	if err != nil {
		return tghelpers.SendText(c, genericFailure)
	}
	out, err := h.flows.ChooseLength(c.Sender().ID, n)
	if err != nil {
		return h.flowFailed(c, err)
	}
	return h.render(c, out, true)
}

func (h *Handlers) ToggleClass(c tele.Context) error {
	out, err := h.flows.ToggleClass(c.Sender().ID, callbacks.CallbackPayload(c))
	if err != nil {
		return h.flowFailed(c, err)
	}
	return h.render(c, out, true)
}

// GenerateDetailed finishes the detailed flow and shows the result panel.
func (h *Handlers) GenerateDetailed(c tele.Context) error {
	out, err := h.flows.FinishDetailed(tghelpers.BuildContext(c), c.Sender().ID)
	if err != nil {
		return h.flowFailed(c, err)
	}
	return h.render(c, out, true)
}

func (h *Handlers) SaveGenerated(c tele.Context) error {
	out, err := h.flows.StartSaveGenerated(c.Sender().ID)
	if errors.Is(err, flow.ErrNoGenerated) {
		return tghelpers.SendText(c, "Generate a password first.")
	}
	if err != nil {
		return h.flowFailed(c, err)
	}
	return h.render(c, out, false)
}

func (h *Handlers) StartAddPassword(c tele.Context) error {
	out := h.flows.StartAddPassword(c.Sender().ID)
	return h.render(c, out, false)
}

// FlowText feeds a text message into the active flow step.
func (h *Handlers) FlowText(c tele.Context) error {
	out, err := h.flows.HandleText(tghelpers.BuildContext(c), c.Sender().ID, c.Text())
	if err != nil {
		return h.flowFailed(c, err)
	}
	return h.render(c, out, false)
}

func (h *Handlers) SkipStep(c tele.Context) error {
	out, err := h.flows.Skip(tghelpers.BuildContext(c), c.Sender().ID)
	if err != nil {
		return h.flowFailed(c, err)
	}
	return h.render(c, out, false)
}

func (h *Handlers) CancelFlow(c tele.Context) error {
	h.flows.Cancel(c.Sender().ID)
	return tghelpers.EditOrSendMD(c, "Cancelled.\n\n"+mainMenuText(), mainMenuMarkup())
}

func (h *Handlers) HistoryPage(c tele.Context) error {
	page, err := callbacks.PayloadInt(c)
	if err != nil || page < 0 {
		page = 0
	}
	entries, err := h.svc.HistoryPage(tghelpers.BuildContext(c), c.Sender().ID, page)
	if err != nil {
		return tghelpers.SendText(c, genericFailure)
	}
	markup := historyMarkup(page, page > 0, len(entries) == storage.HistoryPageSize)
	return tghelpers.EditOrSendMD(c, historyText(entries, page), markup)
}

func (h *Handlers) ClearHistory(c tele.Context) error {
	if err := h.svc.ClearHistory(tghelpers.BuildContext(c), c.Sender().ID); err != nil {
		return tghelpers.SendText(c, genericFailure)
	}
	return tghelpers.EditOrSendMD(c, "🗑 History cleared.\n\n"+mainMenuText(), mainMenuMarkup())
}

func (h *Handlers) ManagerPage(c tele.Context) error {
	page, err := callbacks.PayloadInt(c)
	if err != nil || page < 0 {
		page = 0
	}
	return h.renderManagerPage(c, page)
}

func (h *Handlers) renderManagerPage(c tele.Context, page int) error {
	entries, err := h.svc.ManagerPage(tghelpers.BuildContext(c), c.Sender().ID, page)
	if err != nil {
		return tghelpers.SendText(c, genericFailure)
	}
	markup := managerMarkup(entries, page, page > 0, len(entries) == storage.ManagerPageSize)
	return tghelpers.EditOrSendMD(c, managerText(entries, page), markup)
}

func (h *Handlers) DeleteEntry(c tele.Context) error {
	id, page, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil || page < 0 {
		return tghelpers.SendText(c, genericFailure)
	}
	err = h.svc.DeleteEntry(tghelpers.BuildContext(c), c.Sender().ID, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return tghelpers.SendText(c, "Entry not found.")
	case err != nil:
		return tghelpers.SendText(c, genericFailure)
	}
	return h.renderManagerPage(c, int(page))
}

// render shows the next prompt (or result) for a flow outcome. edit selects
// in-place message editing, used when the outcome follows a button press.
func (h *Handlers) render(c tele.Context, out flow.Outcome, edit bool) error {
	send := tghelpers.SendMD
	if edit {
		send = tghelpers.EditOrSendMD
	}

	switch {
	case out.Done && out.Password != "":
		return send(c, resultText(out.Password, out.Length, out.Classes),
			resultMarkup(encodeSpec(out.Length, out.Classes)))

	case out.Done:
		return send(c, savedText(out.Service, out.EntryID), savedMarkup())

	case out.Invalid:
		text := promptText(out.Step, out.Length)
		if out.Hint != "" {
			text = "⚠️ " + out.Hint + "\n\n" + text
		}
		return send(c, strings.TrimSpace(text), promptMarkup(out.Step, out.Classes))

	case out.Step == state.StateIdle:
		return send(c, mainMenuText(), mainMenuMarkup())

	default:
		return send(c, promptText(out.Step, out.Length), promptMarkup(out.Step, out.Classes))
	}
}

// flowFailed resets the conversation after a storage or generator error.
func (h *Handlers) flowFailed(c tele.Context, err error) error {
	if errors.Is(err, flow.ErrNoFlow) {
		return tghelpers.SendMD(c, mainMenuText(), mainMenuMarkup())
	}
	_ = tghelpers.SendText(c, genericFailure)
	return err
}
