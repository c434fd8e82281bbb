package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/patient-import/internal/codes"
	"github.com/ginjaninja78/patient-import/internal/importer"
)

var nextCodePrefix string

// nextCodeCmd prints the code the repository would hand out next for a
// prefix such as "PX-AB-".
var nextCodeCmd = &cobra.Command{
	Use:   "next-code",
	Short: "Print the next free code for a prefix",
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

		return runNextCode(ctx, cmd.OutOrStdout(), repo, nextCodePrefix)
	},
}

func init() {
	rootCmd.AddCommand(nextCodeCmd)

	nextCodeCmd.Flags().StringVar(&nextCodePrefix, "prefix", "", `Code prefix, e.g. "PX-AB-"`)
	nextCodeCmd.MarkFlagRequired("prefix")
}

func runNextCode(ctx context.Context, out io.Writer, repo importer.CodeLister, prefix string) error {
	if strings.TrimSpace(prefix) == "" {
		return fmt.Errorf("prefix must not be empty")
	}

	existing, err := repo.ListExistingCodes(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, codes.GenerateNextCode(strings.ToUpper(prefix), existing))
	return nil
}
