package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	macho "github.com/appsworld/go-machview"
)

func init() {
	rootCmd.AddCommand(symbolsCmd)
	symbolsCmd.Flags().StringP("filter", "f", "", "Only print symbols whose name contains this")
	viper.BindPFlag("symbols.filter", symbolsCmd.Flags().Lookup("filter"))
	symbolsCmd.MarkZshCompPositionalArgumentFile(1)
}

// symbolsCmd represents the symbols command
var symbolsCmd = &cobra.Command{
	Use:     "symbols <macho>",
	Aliases: []string{"n"},
	Short:   "Print the symbol table",
	Example: heredoc.Doc(`
		# Print the symbols with "objc" in their name
		❯ machview symbols --filter objc /usr/lib/libobjc.A.dylib`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachMachO(args[0], func(m *macho.MachO) {
			printSymbols(os.Stdout, macho.NewSymbolInfo(m), viper.GetString("symbols.filter"))
		})
	},
}

func printSymbols(w io.Writer, si *macho.SymbolInfo, filter string) {
	n := si.Filter(filter)
	for i := 0; i < n; i++ {
		sym, where, err := si.Symbol(i)
		if err != nil {
			break
		}
		fmt.Fprintf(w, "%s %s %s %s\n",
			symAddrColor("%#016x", sym.Value),
			symTypeColor("%-16s", sym.Type),
			symSectColor("%-24s", where),
			symNameColor(sym.Name))
	}
	fmt.Fprintln(w, rangeColor("%d of %d symbols", n, si.NumSymbols()))
}
