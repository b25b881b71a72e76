package sync

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/app/client"
	domainsync "fieldsync/internal/domain/sync"
)

var (
	drainOnly   bool
	refreshOnly bool
	syncStatus  bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизировать сейчас",
	Long: `Разовая синхронизация с сервером: сначала отправляется очередь записей,
затем обновляются снимки всех семейств.

Если сервер недоступен, синхронизация пропускается, записи остаются в очереди.`,
	Annotations: map[string]string{types.ConnectivityAnnotation: "check"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		asJSON := types.JSONOutput(cmd)

		switch {
		case syncStatus:
			return showSyncStatus(cmd.Context(), app, asJSON)
		case drainOnly:
			res, err := app.Drain(cmd.Context())
			if err != nil {
				return fmt.Errorf("ошибка отправки очереди: %w", err)
			}
			if asJSON {
				return types.PrintJSON(os.Stdout, res)
			}
			printDrain(res)
		case refreshOnly:
			res, err := app.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("ошибка обновления снимков: %w", err)
			}
			if asJSON {
				return types.PrintJSON(os.Stdout, res)
			}
			printRefresh(res)
		default:
			return runSync(cmd.Context(), app, asJSON)
		}

		return printError(app)
	},
}

func runSync(ctx context.Context, app *client.App, asJSON bool) error {
	start := time.Now()

	res, err := app.SyncNow(ctx)
	if err != nil {
		return fmt.Errorf("ошибка синхронизации: %w", err)
	}
	if asJSON {
		return types.PrintJSON(os.Stdout, res)
	}

	fmt.Println(types.Title("=== Синхронизация данных ==="))
	if res.Skipped {
		fmt.Println(types.Warn("⚠️  Сервер недоступен или синхронизация уже идет, записи остаются в очереди"))
		return nil
	}

	printDrain(res.Drain)
	printRefresh(res.Refresh)
	fmt.Printf("Время выполнения: %v\n", time.Since(start).Round(time.Millisecond))

	return printError(app)
}

func printDrain(res domainsync.DrainResult) {
	if res.Skipped {
		fmt.Println(types.Warn("⚠️  Отправка очереди пропущена: нет сети или синхронизация уже идет"))
		return
	}
	fmt.Printf("Отправлено на сервер: %s\n", types.OK(res.Succeeded))
	if res.Failed > 0 {
		fmt.Printf("Не отправлено: %s (будут повторены: %d, отклонены: %d)\n",
			types.Fail(res.Failed), res.Transient, res.Terminal)
	}
}

func printRefresh(res domainsync.RefreshResult) {
	if res.Skipped {
		fmt.Println(types.Warn("⚠️  Обновление снимков пропущено: нет сети или синхронизация уже идет"))
		return
	}
	fmt.Printf("Обновлено семейств: %s из %d\n", types.OK(res.Refreshed), len(res.Families))
	for _, f := range res.Families {
		if f.Error != "" {
			fmt.Printf("  • %s: %s\n", f.Family, types.Fail(f.Error))
			continue
		}
		fmt.Printf("  • %s: %d записей\n", f.Family, f.Records)
	}
}

func printError(app *client.App) error {
	if s := app.Status(); s.Error != "" {
		fmt.Printf("%s %s\n", types.Warn("Последняя ошибка:"), s.Error)
	}
	return nil
}

func showSyncStatus(ctx context.Context, app *client.App, asJSON bool) error {
	status := app.Status()

	type familyStatus struct {
		Family     string    `json:"family"`
		LastSyncAt time.Time `json:"last_sync_at,omitempty"`
		Synced     bool      `json:"synced"`
	}
	families := make([]familyStatus, 0, len(app.Families()))
	for _, f := range app.Families() {
		last, ok, err := app.LastSyncTime(ctx, f.Key)
		if err != nil {
			return fmt.Errorf("ошибка чтения метаданных %s: %w", f.Key, err)
		}
		families = append(families, familyStatus{Family: f.Key, LastSyncAt: last, Synced: ok})
	}

	if asJSON {
		return types.PrintJSON(os.Stdout, struct {
			Status   domainsync.Status `json:"status"`
			Families []familyStatus    `json:"families"`
		}{status, families})
	}

	fmt.Println(types.Title("=== Статус синхронизации ==="))

	fmt.Printf("🌐 Соединение с сервером: ")
	if status.IsOnline {
		fmt.Println(types.OK("✅ OK"))
	} else {
		fmt.Println(types.Fail("❌ Нет связи"))
	}
	fmt.Printf("📤 Записей в очереди: %d\n", status.PendingCount)
	fmt.Printf("⏰ Последняя синхронизация: %s\n", types.FormatTime(status.LastSyncAt))

	fmt.Println("\n📦 Снимки:")
	for _, f := range families {
		fmt.Printf("  %s: %s\n", f.Family, types.FormatTime(f.LastSyncAt))
	}

	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&drainOnly, "drain", false, "только отправить очередь записей")
	SyncCmd.Flags().BoolVar(&refreshOnly, "refresh", false, "только обновить снимки")
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
	SyncCmd.MarkFlagsMutuallyExclusive("drain", "refresh", "status")
}
