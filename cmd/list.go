package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/patient-import/internal/repository"
)

var listCodePrefix string

// listCmd prints the repository's records in code order.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List patient records in the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		_, _, repo, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		return runList(ctx, cmd.OutOrStdout(), repo, listCodePrefix)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listCodePrefix, "code-prefix", "", "Only show codes starting with this prefix")
}

func runList(ctx context.Context, out io.Writer, repo repository.Repository, prefix string) error {
	records, err := repo.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tAGE\tSEX\tCREATED\tTRANSACTIONS")

	shown := 0
	prefix = strings.ToUpper(prefix)
	for _, rec := range records {
		if !strings.HasPrefix(rec.Code, prefix) {
			continue
		}
		shown++
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			rec.Code, rec.FullName(), rec.Age, rec.Sex, rec.CreatedDate, strings.Join(rec.Transactions, " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "%d record(s)\n", shown)
	return nil
}
