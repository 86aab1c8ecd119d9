package bot

import (
	"errors"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/doxlab/passbot/core/telegram/helpers"
	"github.com/doxlab/passbot/core/telegram/ui"
	"github.com/doxlab/passbot/internal/service"
	"github.com/doxlab/passbot/internal/storage"
)

// Fallback handles updates that match no command, callback, or flow step.
// Its main job is the dynamic /delete_<id> command.
type Fallback struct {
	svc *service.PasswordService
}

var _ ui.FallbackProvider = (*Fallback)(nil)

func NewFallback(svc *service.PasswordService) *Fallback {
	return &Fallback{svc: svc}
}

// parseDeleteID extracts the id from a "/delete_<id>" message. The second
// return is false when the text is not a delete command at all.
func parseDeleteID(text string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(text), "/delete_")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (f *Fallback) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		if id, ok := parseDeleteID(c.Text()); ok {
			err := f.svc.DeleteEntry(tghelpers.BuildContext(c), c.Sender().ID, id)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				return tghelpers.SendText(c, "Entry not found.")
			case err != nil:
				return tghelpers.SendText(c, genericFailure)
			}
			return tghelpers.SendText(c, "🗑 Entry deleted.")
		}
		return tghelpers.SendText(c, "I didn't get that. Try /start.")
	}
}

func (f *Fallback) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, "I only understand text messages. Try /start.")
	}
}

func (f *Fallback) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		_ = c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		return nil
	}
}
