package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/bz888/solver/internal/api"
	"github.com/bz888/solver/internal/language"
	"github.com/bz888/solver/internal/logger"
	"github.com/bz888/solver/internal/page"
	"github.com/bz888/solver/internal/prefs"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const welcome = "Press Ctrl+G to solve the current page, or type a problem below and press Enter.\nCtrl+L picks the language, /help lists commands."

type Options struct {
	Fetcher *api.Fetcher
	Store   prefs.Store
	Source  page.Source
	Dev     bool
}

// UI is the solver popup: a language bar, the solution view and a problem
// input, plus a debug console in dev mode.
type UI struct {
	app          *tview.Application
	pages        *tview.Pages
	mainFlex     *tview.Flex
	languageBar  *tview.TextView
	solution     *solutionView
	textArea     *tview.TextArea
	debugConsole *tview.TextView
	debugShown   bool

	fetcher *api.Fetcher
	state   *api.State
	store   prefs.Store
	source  page.Source
	log     *logger.Logger
}

func New(opts Options) *UI {
	u := &UI{
		app:     tview.NewApplication(),
		fetcher: opts.Fetcher,
		store:   opts.Store,
		source:  opts.Source,
		log:     logger.NewLogger("views"),
	}
	u.app.EnablePaste(true)
	u.app.EnableMouse(true)

	u.debugConsole = u.initDebugConsole()
	u.languageBar = u.initLanguageBar()
	u.solution = newSolutionView(func(f func()) { u.app.QueueUpdateDraw(f) })
	u.textArea = initProblemInput()

	lang := language.Default
	if u.store != nil {
		stored, err := prefs.LoadLanguage(u.store)
		if err != nil {
			u.log.Warn("Failed to load language preference: ", err)
		}
		lang = stored
	}
	u.state = api.NewState(lang, u.solution)
	u.refreshLanguageBar()

	u.mainFlex = u.layout(opts.Dev)
	u.pages = tview.NewPages().AddPage("main", u.mainFlex, true, true)
	u.setInputCapture()
	return u
}

// DebugConsole is the view the logger writes to in dev mode.
func (u *UI) DebugConsole() *tview.TextView {
	return u.debugConsole
}

func (u *UI) State() *api.State {
	return u.state
}

// Run blocks until the user quits.
func (u *UI) Run() error {
	return u.app.SetRoot(u.pages, true).SetFocus(u.textArea).Run()
}

func (u *UI) initDebugConsole() *tview.TextView {
	console := tview.NewTextView().
		SetChangedFunc(func() {
			u.app.Draw()
		}).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	console.SetTitle("Debugger").SetBorder(true)
	console.ScrollToEnd()
	return console
}

func (u *UI) initLanguageBar() *tview.TextView {
	bar := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	bar.SetTitle("Language").SetBorder(true)
	return bar
}

func initProblemInput() *tview.TextArea {
	textArea := tview.NewTextArea()
	textArea.SetPlaceholder("Type or paste a problem statement...")
	textArea.SetTitle("Problem").SetBorder(true)
	return textArea
}

func (u *UI) layout(dev bool) *tview.Flex {
	subFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(u.languageBar, 3, 0, false).
		AddItem(u.solution.view, 0, 1, false).
		AddItem(u.textArea, 8, 0, true)
	mainFlex := tview.NewFlex().
		AddItem(subFlex, 0, 2, true)

	if dev {
		mainFlex.AddItem(u.debugConsole, 0, 1, false)
		u.debugShown = true
	}
	return mainFlex
}

func (u *UI) setInputCapture() {
	u.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlG:
			u.solvePage()
			return nil
		case tcell.KeyCtrlL:
			u.openLanguagePicker()
			return nil
		}
		return event
	})

	u.solution.view.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEnter {
			u.app.SetFocus(u.textArea)
			return nil
		}
		return event
	})

	u.textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyESC:
			u.app.SetFocus(u.solution.view)
			return nil
		case tcell.KeyEnter:
			if event.Modifiers()&tcell.ModAlt != 0 {
				// Alt+Enter inserts a newline
				return tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)
			}
			content := u.textArea.GetText()
			if strings.TrimSpace(content) == "" {
				return nil
			}
			u.textArea.SetText("", true)
			u.handleInput(content)
			return nil
		}
		return event
	})
}

// handleInput runs a slash command or solves content as a typed problem.
func (u *UI) handleInput(content string) {
	name, arg, isCommand := parseCommand(content)
	if !isCommand {
		u.solve(content)
		return
	}

	switch name {
	case "help":
		u.solution.show(helpText())
	case "bye", "quit", "exit":
		u.quit()
	case "debug":
		u.toggleDebugConsole()
	case "lang":
		if arg == "" {
			u.openLanguagePicker()
			return
		}
		lang, err := language.Parse(arg)
		if err != nil {
			u.solution.show("Error: " + err.Error())
			return
		}
		u.setLanguage(lang)
	case "page":
		u.solvePage()
	default:
		u.solution.show(fmt.Sprintf("Unknown command /%s. Type /help for the list.", name))
	}
}

func parseCommand(content string) (name, arg string, ok bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "/") {
		return "", "", false
	}
	fields := strings.Fields(trimmed[1:])
	if len(fields) == 0 {
		return "", "", false
	}
	name = strings.ToLower(fields[0])
	if len(fields) > 1 {
		arg = fields[1]
	}
	return name, arg, true
}

// solve runs one request off the UI goroutine. The input stays disabled
// until it settles.
func (u *UI) solve(task string) {
	u.textArea.SetDisabled(true)
	go func() {
		defer u.app.QueueUpdateDraw(func() {
			u.textArea.SetDisabled(false)
		})
		// the outcome, errors included, is rendered through the state
		_, _ = u.fetcher.Solve(context.Background(), u.state, task)
	}()
}

func (u *UI) solvePage() {
	if u.source == nil {
		u.solution.show("Error: no page to solve. Start solver with --page <file|url>, or type the problem below.")
		return
	}
	u.solution.show("Reading page...")
	go func() {
		p, err := u.source.Content(context.Background())
		if err != nil {
			u.log.Errorf("Failed to get page content: %v", err)
			u.solution.Render(api.Snapshot{Phase: api.Failed, Text: "Error: " + err.Error(), Err: err})
			return
		}
		u.log.Infof("Read %d bytes from %s (%s)", len(p.Markup), p.Origin, p.Title)
		u.app.QueueUpdate(func() {
			u.solve(p.Markup)
		})
	}()
}

func (u *UI) setLanguage(lang language.Language) {
	u.state.SetLanguage(lang)
	u.refreshLanguageBar()
	if u.store != nil {
		if err := prefs.SaveLanguage(u.store, lang); err != nil {
			u.log.Error("Failed to save language preference: ", err)
		}
	}
	u.log.Info("Selected language: ", lang)
}

func (u *UI) refreshLanguageBar() {
	u.languageBar.SetText(renderLanguageBar(u.state.Language()))
}

func renderLanguageBar(selected language.Language) string {
	var sb strings.Builder
	for i, lang := range language.All() {
		if lang == selected {
			fmt.Fprintf(&sb, "[black:green] %d %s [-:-] ", i+1, tview.Escape(lang.Label()))
		} else {
			fmt.Fprintf(&sb, " %d %s  ", i+1, tview.Escape(lang.Label()))
		}
	}
	return sb.String()
}

func createModal(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

func (u *UI) openLanguagePicker() {
	if u.pages.HasPage("languageModal") {
		return
	}
	current := u.state.Language()

	closeModal := func() {
		u.pages.RemovePage("languageModal")
		u.app.SetFocus(u.textArea)
	}

	list := tview.NewList()
	list.SetBorder(true).SetTitle("Language")
	for i, lang := range language.All() {
		lang := lang
		secondary := ""
		if lang == current {
			secondary = "current"
		}
		list.AddItem(lang.Label(), secondary, '1'+rune(i), func() {
			u.setLanguage(lang)
			closeModal()
		})
	}
	list.AddItem("Back", "", 'q', closeModal)
	list.SetCurrentItem(current.Index())

	u.pages.AddPage("languageModal", createModal(list, 40, 2*len(language.All())+4), true, true)
	u.app.SetFocus(list)
}

func (u *UI) toggleDebugConsole() {
	if u.debugShown {
		u.mainFlex.RemoveItem(u.debugConsole)
		u.solution.show("Debug console disabled")
	} else {
		u.mainFlex.AddItem(u.debugConsole, 0, 1, false)
		u.solution.show("Debug console enabled")
	}
	u.debugShown = !u.debugShown
}

func (u *UI) quit() {
	u.log.Info("Shutting down gracefully.")
	u.app.Stop()
}

func helpText() string {
	var sb strings.Builder
	sb.WriteString("Keys:\n")
	sb.WriteString("- Ctrl+G: solve the current page\n")
	sb.WriteString("- Enter: solve the typed problem (Alt+Enter for a new line)\n")
	sb.WriteString("- Ctrl+L: choose the language\n")
	sb.WriteString("- Esc: scroll the solution, Enter to come back\n\n")
	sb.WriteString("Commands:\n")
	sb.WriteString("- /help: Display this help message\n")
	sb.WriteString("- /bye: Exit the application\n")
	sb.WriteString("- /debug: Toggle the debug console\n")
	sb.WriteString("- /lang [id]: Pick a language (" + strings.Join(language.IDs(), ", ") + ")\n")
	sb.WriteString("- /page: Solve the current page\n")
	return sb.String()
}
