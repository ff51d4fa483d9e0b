package cmd

import (
	"github.com/bz888/solver/internal/language"
	"github.com/bz888/solver/internal/prefs"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var langCmd = &cobra.Command{
	Use:   "lang",
	Short: "Show or change the preferred solution language",
	Args:  cobra.NoArgs,
	RunE:  runLangList,
}

var langListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported languages",
	Args:  cobra.NoArgs,
	RunE:  runLangList,
}

var langGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the preferred language",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := prefs.LoadLanguage(prefs.NewFileStore(cfg.PrefsPath))
		if err != nil {
			return err
		}
		cmd.Println(lang)
		return nil
	},
}

var langSetCmd = &cobra.Command{
	Use:       "set <language>",
	Short:     "Save the preferred language",
	Args:      cobra.ExactArgs(1),
	ValidArgs: language.IDs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := language.Parse(args[0])
		if err != nil {
			return err
		}
		store := prefs.NewFileStore(cfg.PrefsPath)
		if err := prefs.SaveLanguage(store, lang); err != nil {
			return err
		}
		pterm.Success.Printfln("Preferred language set to %s in %s", lang.Label(), store.Path())
		return nil
	},
}

func init() {
	langCmd.AddCommand(langListCmd, langGetCmd, langSetCmd)
}

func runLangList(cmd *cobra.Command, args []string) error {
	current, err := prefs.LoadLanguage(prefs.NewFileStore(cfg.PrefsPath))
	if err != nil {
		pterm.Warning.Printfln("Could not read preferences: %v", err)
	}

	table := pterm.TableData{{"ID", "Language", ""}}
	for _, lang := range language.All() {
		marker := ""
		if lang == current {
			marker = "current"
		}
		table = append(table, []string{lang.String(), lang.Label(), marker})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}
