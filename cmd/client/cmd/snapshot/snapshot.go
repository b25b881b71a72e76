package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fieldsync/cmd/client/cmd/types"
)

var SnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Локальные снимки серверных данных",
	Long: `Снимки семейств (потенциальные клиенты, встречи, визиты) доступны без сети.
Обновляются командой sync или фоновой синхронизацией.`,
}

var ListCmd = &cobra.Command{
	Use:   "list [family]",
	Short: "Список семейств или записей семейства",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if len(args) == 0 {
			if types.JSONOutput(cmd) {
				return types.PrintJSON(os.Stdout, app.Families())
			}
			for _, f := range app.Families() {
				last, _, err := app.LastSyncTime(ctx, f.Key)
				if err != nil {
					return fmt.Errorf("ошибка чтения метаданных %s: %w", f.Key, err)
				}
				fmt.Printf("%s (выборок: %d, обновлено: %s)\n", types.Title(f.Key), len(f.Listings), types.FormatTime(last))
			}
			return nil
		}

		recs, err := app.Snapshot(ctx, args[0])
		if err != nil {
			return fmt.Errorf("ошибка чтения снимка: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(os.Stdout, recs)
		}
		if len(recs) == 0 {
			fmt.Println("Снимок пуст. Выполните: fieldsync sync")
			return nil
		}
		for _, r := range recs {
			fmt.Printf("%s\t%s\n", types.Title(r.ID), compact(r.Data))
		}
		fmt.Printf("\nВсего записей: %d\n", len(recs))
		return nil
	},
}

var GetCmd = &cobra.Command{
	Use:   "get <family> <id>",
	Short: "Показать запись снимка",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		rec, err := app.SnapshotRecord(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("ошибка чтения записи: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(os.Stdout, rec)
		}
		var v interface{}
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			fmt.Println(string(rec.Data))
			return nil
		}
		return types.PrintJSON(os.Stdout, v)
	},
}

func compact(data []byte) string {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	b, _ := json.Marshal(v)
	return string(b)
}
