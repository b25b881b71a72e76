package cmd

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/app/client"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Запустить фоновую синхронизацию",
	Long: `Команда run работает до Ctrl+C:
	- периодически проверяет доступность сервера;
	- при появлении сети отправляет очередь и обновляет снимки;
	- по таймеру обновляет снимки и отправляет очередь.

Изменение sync_interval_seconds в конфигурационном файле применяется без перезапуска.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		watchInterval(app)

		fmt.Printf("FieldSync запущен, сервер %s. Для остановки нажмите Ctrl+C\n", cfg.ServerAddress)
		return app.Run(cmd.Context())
	},
}

// watchInterval следит за конфигурационным файлом и меняет период синхронизации
func watchInterval(app *client.App) {
	if viper.ConfigFileUsed() == "" {
		return
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		seconds := viper.GetInt("SYNC_INTERVAL_SECONDS")
		if seconds <= 0 {
			log.Warn("Некорректный период синхронизации в конфигурации", "value", seconds)
			return
		}
		if err := app.SetInterval(time.Duration(seconds) * time.Second); err != nil {
			log.Error("Не удалось изменить период синхронизации", "error", err)
		}
	})
	viper.WatchConfig()

	log.Debug("Отслеживание конфигурации", "file", viper.ConfigFileUsed())
}
