package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	macho "github.com/appsworld/go-machview"
)

func init() {
	rootCmd.AddCommand(loadsCmd)
	rootCmd.AddCommand(libsCmd)
	loadsCmd.MarkZshCompPositionalArgumentFile(1)
	libsCmd.MarkZshCompPositionalArgumentFile(1)
}

// loadsCmd represents the loads command
var loadsCmd = &cobra.Command{
	Use:           "loads <macho>",
	Aliases:       []string{"l"},
	Short:         "List the load commands",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachMachO(args[0], func(m *macho.MachO) { printLoads(os.Stdout, m) })
	},
}

// libsCmd represents the libs command
var libsCmd = &cobra.Command{
	Use:           "libs <macho>",
	Short:         "List the linked dylibs",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachMachO(args[0], func(m *macho.MachO) {
			for _, lib := range m.Libraries() {
				fmt.Println(stringColor(lib))
			}
		})
	},
}

// eachMachO runs fn over the selected images of the named file, with a
// title line per image of a fat file.
func eachMachO(name string, fn func(m *macho.MachO)) error {
	f, err := openFile(name)
	if err != nil {
		return err
	}
	ms, err := selectMachOs(f)
	if err != nil {
		return err
	}
	for _, m := range ms {
		if f.Fat != nil {
			fmt.Println(containerColor(m.Name()))
		}
		fn(m)
	}
	return nil
}

func printLoads(w io.Writer, m *macho.MachO) {
	for i, l := range m.LoadCommands() {
		var strs []string
		for _, s := range l.Strings {
			strs = append(strs, s.Value)
		}
		fmt.Fprintf(w, "%03d: %-28s %s %s\n", i, recordColor(l.Cmd.String()),
			rangeColor("offset=%#x size=%d", l.Offset, l.Size), stringColor(strings.Join(strs, " ")))
	}
}
