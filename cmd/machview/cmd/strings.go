package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	macho "github.com/appsworld/go-machview"
)

func init() {
	rootCmd.AddCommand(stringsCmd)
	stringsCmd.Flags().StringP("filter", "f", "", "Only print strings containing this")
	viper.BindPFlag("strings.filter", stringsCmd.Flags().Lookup("filter"))
	stringsCmd.MarkZshCompPositionalArgumentFile(1)
}

// stringsCmd represents the strings command
var stringsCmd = &cobra.Command{
	Use:           "strings <macho>",
	Aliases:       []string{"c"},
	Short:         "Print the C strings of __cstring and __objc_methname",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachMachO(args[0], func(m *macho.MachO) {
			printStrings(os.Stdout, macho.NewStringInfo(m), viper.GetString("strings.filter"))
		})
	},
}

func printStrings(w io.Writer, si *macho.StringInfo, filter string) {
	n := si.Filter(filter)
	for i := 0; i < n; i++ {
		cs, section, err := si.Item(i)
		if err != nil {
			break
		}
		fmt.Fprintf(w, "%s %s %s\n", symAddrColor("%6d", cs.Index), symSectColor("%-24s", section), stringColor(fmt.Sprintf("%q", cs.Value)))
	}
	fmt.Fprintln(w, rangeColor("%d of %d strings", n, si.NumStrings()))
}
