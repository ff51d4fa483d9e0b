package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bz888/solver/internal/api"
	"github.com/bz888/solver/internal/language"
	"github.com/bz888/solver/internal/logger"
	"github.com/bz888/solver/internal/page"
	"github.com/bz888/solver/internal/prefs"
	"github.com/bz888/solver/internal/speech"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var solveFlags struct {
	lang string
	file string
	url   string
	text  string
	audio string
}

var solveCmd = &cobra.Command{
	Use:   "solve [file|url|-]",
	Short: "Fetch a solution once and print it as it streams",
	Example: `  solver solve problem.html
  solver solve --url https://leetcode.com/problems/two-sum/ --lang go
  echo "reverse a linked list" | solver solve -
  solver solve --audio question.wav`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveFlags.lang, "lang", "l", "", "Target language (default: saved preference)")
	solveCmd.Flags().StringVarP(&solveFlags.file, "file", "f", "", "Read the problem page from a file, - for stdin")
	solveCmd.Flags().StringVarP(&solveFlags.url, "url", "u", "", "Fetch the problem page from a URL")
	solveCmd.Flags().StringVarP(&solveFlags.text, "text", "t", "", "Problem statement as text")
	solveCmd.Flags().StringVarP(&solveFlags.audio, "audio", "a", "", "Transcribe the problem from a mono 16-bit WAV recording")
	cfg.BindFetchFlags(solveCmd.Flags())
	cfg.BindSpeechFlags(solveCmd.Flags())
}

func runSolve(cmd *cobra.Command, args []string) error {
	if err := logger.InitLogger(cfg.Dev, cfg.LogPath, nil); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	fetcher, err := newFetcher()
	if err != nil {
		return err
	}

	lang, err := solveLanguage()
	if err != nil {
		return err
	}

	source := solveSource(args)
	if source == nil {
		return errors.New("nothing to solve: pass a file, --url, --text, --audio or --page")
	}
	p, err := source.Content(cmd.Context())
	if err != nil {
		pterm.Error.Println("Could not retrieve page content.")
		return err
	}

	printer := newStreamPrinter(cmd.OutOrStdout(), !pterm.RawOutput)
	st := api.NewState(lang, printer)
	_, err = fetcher.Solve(cmd.Context(), st, p.Markup)
	return err
}

func solveLanguage() (language.Language, error) {
	if solveFlags.lang != "" {
		return language.Parse(solveFlags.lang)
	}
	lang, err := prefs.LoadLanguage(prefs.NewFileStore(cfg.PrefsPath))
	if err != nil {
		pterm.Warning.Printfln("Using %s: %v", lang, err)
	}
	return lang, nil
}

func solveSource(args []string) page.Source {
	switch {
	case solveFlags.text != "":
		return page.TextSource{Text: solveFlags.text}
	case solveFlags.audio != "":
		return page.AudioSource{
			Path:        solveFlags.audio,
			Transcriber: speech.NewGoogleClient(cfg.Speech.Endpoint, cfg.Speech.Key, cfg.Speech.Lang),
		}
	case solveFlags.file != "":
		return page.FileSource{Path: solveFlags.file, Compact: cfg.Compact}
	case solveFlags.url != "":
		return page.URLSource{URL: solveFlags.url, Compact: cfg.Compact}
	case len(args) == 1:
		return page.NewSource(args[0], cfg.Compact)
	default:
		return page.NewSource(cfg.Page, cfg.Compact)
	}
}

// streamPrinter is a Display for the terminal. It shows a spinner until
// the first byte arrives and then writes only what is new in each snapshot.
type streamPrinter struct {
	out         io.Writer
	showSpinner bool
	spinner     *pterm.SpinnerPrinter
	printed     string
}

func newStreamPrinter(out io.Writer, showSpinner bool) *streamPrinter {
	return &streamPrinter{out: out, showSpinner: showSpinner}
}

func (p *streamPrinter) Render(snap api.Snapshot) {
	switch snap.Phase {
	case api.Loading:
		p.printed = ""
		if p.showSpinner {
			p.spinner, _ = pterm.DefaultSpinner.WithRemoveWhenDone(true).Start(snap.Text)
		}
	case api.Streaming, api.Complete:
		p.stopSpinner()
		p.write(snap.Text)
		if snap.Phase == api.Complete && !strings.HasSuffix(p.printed, "\n") {
			fmt.Fprintln(p.out)
		}
	case api.Failed:
		// the error itself is reported by the command
		p.stopSpinner()
		if p.printed != "" {
			fmt.Fprintln(p.out)
		}
	}
}

func (p *streamPrinter) write(text string) {
	if delta, ok := strings.CutPrefix(text, p.printed); ok {
		fmt.Fprint(p.out, delta)
	} else {
		fmt.Fprint(p.out, "\n"+text)
	}
	p.printed = text
}

func (p *streamPrinter) stopSpinner() {
	if p.spinner != nil {
		_ = p.spinner.Stop()
		p.spinner = nil
	}
}
