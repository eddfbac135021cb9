package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/appsworld/go-machview/pkg/byterange"
	"github.com/appsworld/go-machview/pkg/record"
)

func init() {
	rootCmd.AddCommand(fieldsCmd)
	fieldsCmd.MarkZshCompPositionalArgumentFile(1)
}

// fieldsCmd represents the fields command
var fieldsCmd = &cobra.Command{
	Use:   "fields <macho> <offset>",
	Short: "Print the fields of the record at a file offset",
	Example: heredoc.Doc(`
		# Print the mach header
		❯ machview fields /bin/ls 0

		# Print the record covering offset 0x4038
		❯ machview fields /bin/ls 0x4038`),
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		off, err := strconv.ParseInt(args[1], 0, 64)
		if err != nil {
			return errors.Wrapf(err, "bad offset %q", args[1])
		}
		f, err := openFile(args[0])
		if err != nil {
			return err
		}
		r, start, ok := recordAt(f.Root(), off)
		if !ok {
			return errors.Errorf("no record covers offset %#x", off)
		}
		printFields(os.Stdout, r, start)
		return nil
	},
}

// recordAt returns the innermost record covering the absolute offset off,
// and the record's absolute start.
func recordAt(root byterange.Node, off int64) (*record.Record, int64, bool) {
	var found *record.Record
	var at int64
	root.Iterate(func(n byterange.Node, start, stop int64, _ int) any {
		if r, ok := n.Data().(*record.Record); ok && start <= off && off < stop {
			found, at = r, start
		}
		return nil
	})
	return found, at, found != nil
}

func printFields(w io.Writer, r *record.Record, start int64) {
	fmt.Fprintln(w, recordColor(r.Name()))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range r.Layout().Fields() {
		off, size, _ := r.FieldRange(f.Name)
		fmt.Fprintf(tw, "%s\t%s\t%s\t% x\n",
			rangeColor("[%#x-%#x]", start+int64(off), start+int64(off+size)),
			fieldColor(f.Name),
			r.Display(f.Name),
			r.FieldBytes(f.Name))
	}
	tw.Flush()
}
