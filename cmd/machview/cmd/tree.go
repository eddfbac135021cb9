package cmd

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/appsworld/go-machview/pkg/byterange"
)

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().BoolP("leaves", "l", false, "Only print the leaves of the tree")
	treeCmd.Flags().IntP("depth", "d", -1, "Maximum depth to print (-1 for no limit)")
	viper.BindPFlag("tree.leaves", treeCmd.Flags().Lookup("leaves"))
	viper.BindPFlag("tree.depth", treeCmd.Flags().Lookup("depth"))

	treeCmd.MarkZshCompPositionalArgumentFile(1)
}

// treeCmd represents the tree command
var treeCmd = &cobra.Command{
	Use:   "tree <macho>",
	Short: "Print the byte range tree of a MachO",
	Long: heredoc.Doc(`
		Print every byte range of the file in offset order. Each line shows the
		absolute span, its size and the decoded payload. Bytes nothing claims
		are shown as padding; padding the format does not call for is flagged.`),
	Example: heredoc.Doc(`
		# Print the whole tree
		❯ machview tree /usr/lib/dyld

		# Print the top two levels of the arm64e slice
		❯ machview tree --depth 1 --arch arm64e /usr/lib/dyld`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFile(args[0])
		if err != nil {
			return err
		}
		root := f.Root()
		if viper.GetString("fat.arch") != "" {
			ms, err := selectMachOs(f)
			if err != nil {
				return err
			}
			root = ms[0].Node()
		}
		for _, line := range renderTree(root, viper.GetBool("tree.leaves"), viper.GetInt("tree.depth")) {
			fmt.Println(line)
		}
		return nil
	},
}

// renderTree renders the subtree at n. A negative depth prints every level.
func renderTree(n byterange.Node, leaves bool, depth int) []string {
	visit := func(c byterange.Node, start, stop int64, d int) any {
		if depth >= 0 && d > depth {
			return nil
		}
		return treeLine(c.Data(), start, stop, d)
	}
	var out []any
	if leaves {
		out = n.IterateLeaves(visit)
	} else {
		out = n.Iterate(visit)
	}
	lines := make([]string, len(out))
	for i, l := range out {
		lines[i] = l.(string)
	}
	return lines
}
