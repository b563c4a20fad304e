package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tuition-server-go/models"
	"tuition-server-go/roster"
)

var importSync bool

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local roster with the remote snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, closeStore, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		data, err := svc.PullFromRemote(cmd.Context())
		if err != nil {
			return err
		}
		for _, grade := range models.ValidGrades {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d students\n", grade, len(data.Sheets[grade].Students))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the roster with the students of an .xlsx file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening roster: %w", err)
		}
		defer f.Close()

		rows, err := roster.ReadExcel(f)
		if err != nil {
			return err
		}

		svc, _, closeStore, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		res, err := svc.ImportRoster(cmd.Context(), rows, importSync)
		if err := reportSync(cmd.ErrOrStderr(), err); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d students\n", res.Imported)
		return nil
	},
}

var templateCmd = &cobra.Command{
	Use:   "template FILE",
	Short: "Write an empty roster workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("creating template: %w", err)
		}
		if err := roster.WriteTemplate(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every student from the local document",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, closeStore, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()
		return svc.ClearStudents(cmd.Context())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard figures as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, closeStore, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()
		return printJSON(cmd.OutOrStdout(), svc.Stats())
	},
}

func init() {
	importCmd.Flags().BoolVar(&importSync, "sync", false, "Push the imported roster to the remote endpoint")
	rootCmd.AddCommand(pullCmd, importCmd, templateCmd, clearCmd, statsCmd)
}
