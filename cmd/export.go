package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <claim-id>",
	Short: "Export a claim's action log to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := env.Store.ListActionLog(ctx, args[0])
		if err != nil {
			return err
		}

		f := xlsx.NewFile()
		sheet, err := f.AddSheet("Action Log")
		if err != nil {
			return eris.Wrap(err, "export: add sheet")
		}

		header := sheet.AddRow()
		for _, col := range []string{"Timestamp", "Agent", "Action", "Input", "Output"} {
			header.AddCell().SetString(col)
		}

		for _, e := range entries {
			row := sheet.AddRow()
			row.AddCell().SetString(e.CreatedAt.Format("2006-01-02 15:04:05"))
			row.AddCell().SetString(e.AgentID)
			row.AddCell().SetString(e.ActionType)
			row.AddCell().SetString(jsonCell(e.InputData))
			row.AddCell().SetString(jsonCell(e.OutputData))
		}

		out := exportOut
		if out == "" {
			out = args[0] + "-action-log.xlsx"
		}
		if err := f.Save(out); err != nil {
			return eris.Wrap(err, "export: save workbook")
		}

		zap.L().Info("exported action log",
			zap.String("claim_id", args[0]),
			zap.Int("entries", len(entries)),
			zap.String("file", out),
		)

		return nil
	},
}

func jsonCell(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	b, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(b)
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default <claim-id>-action-log.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
