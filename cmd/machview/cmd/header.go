package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	macho "github.com/appsworld/go-machview"
)

func init() {
	rootCmd.AddCommand(headerCmd)
	headerCmd.MarkZshCompPositionalArgumentFile(1)
}

// headerCmd represents the header command
var headerCmd = &cobra.Command{
	Use:     "header <macho>",
	Aliases: []string{"h"},
	Short:   "Print the fat and mach headers",
	Example: heredoc.Doc(`
		❯ machview header /bin/ls
		Fat Mach-O: 2 arches (CPU_TYPE_X86_64, CPU_TYPE_ARM64)
		...`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFile(args[0])
		if err != nil {
			return err
		}
		ms, err := selectMachOs(f)
		if err != nil {
			return err
		}
		printHeaders(os.Stdout, f, ms)
		return nil
	},
}

func printHeaders(w io.Writer, f *macho.File, ms []*macho.MachO) {
	fmt.Fprintln(w, containerColor(f.Describe()))
	if f.Fat != nil {
		for _, a := range f.Fat.Arches {
			fmt.Fprintf(w, "    %s\n", a)
		}
	}
	for _, m := range ms {
		start, stop := m.Node().AbsRange()
		fmt.Fprintf(w, "\n%s %s\n", recordColor(m.Name()), rangeColor("(%#x, %s)", start, humanize.IBytes(uint64(stop-start))))
		fmt.Fprint(w, m.FileHeader())
		if u, ok := m.UUID(); ok {
			fmt.Fprintf(w, "UUID          = %s\n", u)
		}
		if ep, ok := m.EntryPoint(); ok {
			fmt.Fprintf(w, "Entry Point   = %#x\n", ep)
		}
		if m.Encrypted() {
			fmt.Fprintln(w, badColor("Encrypted"))
		}
	}
}
