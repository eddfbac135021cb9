package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/go-dwarf"
	"github.com/spf13/cobra"

	macho "github.com/appsworld/go-machview"
)

func init() {
	rootCmd.AddCommand(dwarfCmd)
	dwarfCmd.MarkZshCompPositionalArgumentFile(1)
}

// dwarfCmd represents the dwarf command
var dwarfCmd = &cobra.Command{
	Use:   "dwarf <macho>",
	Short: "List the DWARF compile units",
	Example: heredoc.Doc(`
		❯ machview dwarf ls.dSYM/Contents/Resources/DWARF/ls
		ls.c                           lang=12 producer=Apple clang version 15.0.0`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachMachO(args[0], func(m *macho.MachO) {
			d, err := m.DWARF()
			if err != nil {
				log.WithError(err).Warn("no DWARF")
				return
			}
			if err := printCompileUnits(os.Stdout, d); err != nil {
				log.WithError(err).Error("reading DWARF")
			}
		})
	},
}

func printCompileUnits(w io.Writer, d *dwarf.Data) error {
	r := d.Reader()
	for {
		e, err := r.Next()
		if err != nil {
			return err
		}
		if e == nil {
			return nil
		}
		if e.Tag != dwarf.TagCompileUnit {
			r.SkipChildren()
			continue
		}
		name, _ := e.Val(dwarf.AttrName).(string)
		producer, _ := e.Val(dwarf.AttrProducer).(string)
		fmt.Fprintf(w, "%-30s %s\n", stringColor(name),
			fieldColor(fmt.Sprintf("lang=%v producer=%s", e.Val(dwarf.AttrLanguage), producer)))
		r.SkipChildren()
	}
}
