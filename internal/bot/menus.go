package bot

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/doxlab/passbot/core/telegram/format"
	"github.com/doxlab/passbot/core/telegram/keyboard"
	"github.com/doxlab/passbot/core/telegram/state"
	"github.com/doxlab/passbot/internal/flow"
	"github.com/doxlab/passbot/internal/generator"
	"github.com/doxlab/passbot/internal/model"
	"github.com/doxlab/passbot/internal/storage"
)

// Callback uniques. Payload formats are noted where non-empty.
const (
	cbFast     = "fast"
	cbDetailed = "detailed"
	cbLength   = "gen_len"   // payload: length
	cbClass    = "gen_class" // payload: lower|upper|digit|symbol
	cbGenerate = "gen_go"
	cbAgain    = "gen_again" // payload: spec ("fast" or "<len>:<mask>")
	cbSave     = "gen_save"

	cbMainMenu     = "back_main"
	cbHistoryPage  = "hist_page" // payload: page
	cbHistoryClear = "hist_clear"
	cbManagerPage  = "mgr_page" // payload: page
	cbManagerDel   = "mgr_del"  // payload: "<entry id>|<page>"
	cbAddPassword  = "pm_add"

	cbFlowSkip   = "flow_skip"
	cbFlowCancel = "flow_cancel"
)

// specFast marks a regenerate payload as the one-tap preset.
const specFast = "fast"

// mdEscape neutralises Markdown specials in user-provided text so a stray
// "*" or "_" in a service name does not break the message.
func mdEscape(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return out
}

// monospace wraps s in a code span. A backtick inside the span would leave
// it unbalanced and Telegram would reject the whole message, so such values
// fall back to escaped plain text.
func monospace(s string) string {
	if strings.ContainsRune(s, '`') {
		return mdEscape(s)
	}
	return "`" + s + "`"
}

// encodeSpec packs a custom generation spec into a callback payload,
// e.g. "16:1101" (length, then lower/upper/digit/symbol flags).
func encodeSpec(length int, classes generator.Classes) string {
	mask := [4]byte{'0', '0', '0', '0'}
	if classes.Lower {
		mask[0] = '1'
	}
	if classes.Upper {
		mask[1] = '1'
	}
	if classes.Digit {
		mask[2] = '1'
	}
	if classes.Symbol {
		mask[3] = '1'
	}
	return strconv.Itoa(length) + ":" + string(mask[:])
}

// decodeSpec is the inverse of encodeSpec.
func decodeSpec(payload string) (int, generator.Classes, error) {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 || len(parts[1]) != 4 {
		return 0, generator.Classes{}, fmt.Errorf("bad spec payload: %q", payload)
	}
	length, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, generator.Classes{}, fmt.Errorf("bad spec payload: %q", payload)
	}
	mask := parts[1]
	classes := generator.Classes{
		Lower:  mask[0] == '1',
		Upper:  mask[1] == '1',
		Digit:  mask[2] == '1',
		Symbol: mask[3] == '1',
	}
	return length, classes, nil
}

func mainMenuText() string {
	return "🔐 *Password bot*\n\nGenerate random passwords and keep them in your personal vault."
}

func mainMenuMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "⚡ Fast", Unique: cbFast},
			{Text: "⚙️ Detailed", Unique: cbDetailed},
		},
		[]keyboard.InlineBtn{
			{Text: "📜 History", Unique: cbHistoryPage, Data: "0"},
			{Text: "🗄 Manager", Unique: cbManagerPage, Data: "0"},
		},
		[]keyboard.InlineBtn{
			{Text: "➕ Add password", Unique: cbAddPassword},
		},
	)
}

func helpText() string {
	return strings.Join([]string{
		"*Commands*",
		"/start — main menu",
		"/help — this message",
		"",
		"*Fast* generates a 12-character password with letters, digits and symbols.",
		"*Detailed* lets you pick the length and character classes.",
		"*History* keeps everything you generated; *Manager* stores the passwords you save.",
		"Delete a saved entry with the /delete\\_<id> link shown next to it.",
	}, "\n")
}

func resultText(password string, length int, classes generator.Classes) string {
	return fmt.Sprintf("🔑 Your password:\n\n`%s`\n\nLength: %d\nClasses: %s",
		password, length, classes.Summary())
}

func resultMarkup(spec string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "💾 Save", Unique: cbSave},
			{Text: "🔄 Again", Unique: cbAgain, Data: spec},
		},
		[]keyboard.InlineBtn{
			{Text: "⬅️ Menu", Unique: cbMainMenu},
		},
	)
}

func lengthMarkup() *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(generator.Lengths))
	for _, n := range generator.Lengths {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   strconv.Itoa(n),
			Unique: cbLength,
			Data:   strconv.Itoa(n),
		})
	}
	rows := [][]keyboard.InlineBtn{buttons[:3], buttons[3:]}
	rows = append(rows, []keyboard.InlineBtn{{Text: "❌ Cancel", Unique: cbFlowCancel}})
	return keyboard.InlineButtonsRows(rows...)
}

func classMark(on bool) string {
	if on {
		return "✅"
	}
	return "❌"
}

func classesMarkup(classes generator.Classes) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: classMark(classes.Lower) + " a-z", Unique: cbClass, Data: "lower"},
			{Text: classMark(classes.Upper) + " A-Z", Unique: cbClass, Data: "upper"},
		},
		[]keyboard.InlineBtn{
			{Text: classMark(classes.Digit) + " 0-9", Unique: cbClass, Data: "digit"},
			{Text: classMark(classes.Symbol) + " !@#", Unique: cbClass, Data: "symbol"},
		},
		[]keyboard.InlineBtn{
			{Text: "🎲 Generate", Unique: cbGenerate},
			{Text: "❌ Cancel", Unique: cbFlowCancel},
		},
	)
}

// promptText returns the message shown when a flow step asks for input.
func promptText(step state.State, length int) string {
	switch step {
	case flow.StepLength:
		return "📏 Pick the password length:"
	case flow.StepClasses:
		return fmt.Sprintf("🔤 Length: %d. Toggle character classes, then hit Generate:", length)
	case flow.StepService:
		return "🏷 Send the service name (e.g. `github.com`):"
	case flow.StepUsername:
		return "👤 Send the username or email, or skip:"
	case flow.StepPassword:
		return "🔑 Send the password to store:"
	case flow.StepNotes:
		return "📝 Send notes, or skip:"
	case flow.StepDescription:
		return "🏷 What is this password for? Send a short description:"
	default:
		return ""
	}
}

// promptMarkup returns the keyboard shown alongside promptText.
func promptMarkup(step state.State, classes generator.Classes) *tele.ReplyMarkup {
	switch step {
	case flow.StepLength:
		return lengthMarkup()
	case flow.StepClasses:
		return classesMarkup(classes)
	case flow.StepUsername, flow.StepNotes:
		return keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{
				{Text: "⏭ Skip", Unique: cbFlowSkip},
				{Text: "❌ Cancel", Unique: cbFlowCancel},
			},
		)
	case flow.StepService, flow.StepPassword, flow.StepDescription:
		return keyboard.SingleCancelMarkup(cbFlowCancel)
	default:
		return nil
	}
}

func historyText(entries []model.HistoryEntry, page int) string {
	if len(entries) == 0 {
		if page == 0 {
			return "📜 *History*\n\nNothing generated yet."
		}
		return "📜 *History*\n\nNo more entries."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📜 *History* — page %d\n\n", page+1)
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. `%s`\n    %s, %s\n",
			page*storage.HistoryPageSize+i+1,
			e.Password,
			e.GenerationType,
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return b.String()
}

func historyMarkup(page int, hasPrev, hasNext bool) *tele.ReplyMarkup {
	var nav []keyboard.InlineBtn
	if hasPrev {
		nav = append(nav, keyboard.InlineBtn{
			Text: "⬅️ Prev", Unique: cbHistoryPage, Data: strconv.Itoa(page - 1),
		})
	}
	if hasNext {
		nav = append(nav, keyboard.InlineBtn{
			Text: "➡️ Next", Unique: cbHistoryPage, Data: strconv.Itoa(page + 1),
		})
	}
	rows := [][]keyboard.InlineBtn{}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows,
		[]keyboard.InlineBtn{{Text: "🗑 Clear history", Unique: cbHistoryClear}},
		[]keyboard.InlineBtn{{Text: "⬅️ Menu", Unique: cbMainMenu}},
	)
	return keyboard.InlineButtonsRows(rows...)
}

func managerText(entries []model.ManagerEntry, page int) string {
	if len(entries) == 0 {
		if page == 0 {
			return "🗄 *Manager*\n\nNo saved passwords yet."
		}
		return "🗄 *Manager*\n\nNo more entries."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🗄 *Manager* — page %d\n\n", page+1)
	for _, e := range entries {
		fmt.Fprintf(&b, "• *%s*", mdEscape(e.ServiceName))
		if e.Username != "" {
			fmt.Fprintf(&b, " (%s)", mdEscape(e.Username))
		}
		fmt.Fprintf(&b, "\n  %s\n", monospace(e.Password))
		if e.Notes != "" {
			fmt.Fprintf(&b, "  %s\n", mdEscape(e.Notes))
		}
		fmt.Fprintf(&b, "  /delete\\_%d\n\n", e.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func managerMarkup(entries []model.ManagerEntry, page int, hasPrev, hasNext bool) *tele.ReplyMarkup {
	var rows [][]keyboard.InlineBtn
	var dels []keyboard.InlineBtn
	for _, e := range entries {
		dels = append(dels, keyboard.InlineBtn{
			Text:   "🗑 " + e.ServiceName,
			Unique: cbManagerDel,
			Data:   fmt.Sprintf("%d|%d", e.ID, page),
		})
	}
	for i := 0; i < len(dels); i += 2 {
		end := i + 2
		if end > len(dels) {
			end = len(dels)
		}
		rows = append(rows, dels[i:end])
	}

	var nav []keyboard.InlineBtn
	if hasPrev {
		nav = append(nav, keyboard.InlineBtn{
			Text: "⬅️ Prev", Unique: cbManagerPage, Data: strconv.Itoa(page - 1),
		})
	}
	if hasNext {
		nav = append(nav, keyboard.InlineBtn{
			Text: "➡️ Next", Unique: cbManagerPage, Data: strconv.Itoa(page + 1),
		})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows,
		[]keyboard.InlineBtn{{Text: "➕ Add password", Unique: cbAddPassword}},
		[]keyboard.InlineBtn{{Text: "⬅️ Menu", Unique: cbMainMenu}},
	)
	return keyboard.InlineButtonsRows(rows...)
}

func savedText(service string, id int64) string {
	return fmt.Sprintf("✅ Saved *%s* (id %d).", mdEscape(service), id)
}

func savedMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "🗄 Manager", Unique: cbManagerPage, Data: "0"},
			{Text: "⬅️ Menu", Unique: cbMainMenu},
		},
	)
}
