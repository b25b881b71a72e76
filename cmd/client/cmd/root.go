// cmd/client/cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/slog"

	"fieldsync/cmd/client/cmd/queue"
	"fieldsync/cmd/client/cmd/snapshot"
	"fieldsync/cmd/client/cmd/sync"
	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/app/client"
	"fieldsync/internal/app/client/config"
	"fieldsync/internal/utils/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	app        *client.App
	debug      bool
	jsonOutput bool
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:   "fieldsync",
	Short: "FieldSync - офлайн-синхронизация полевого приложения",
	Long: `FieldSync хранит записи, сделанные без сети, в локальной очереди и
отправляет их на сервер, когда связь появляется. Списки потенциальных
клиентов, встреч и визитов кэшируются локально и доступны офлайн.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	// Загружаем конфигурацию
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Переопределяем настройки из флагов командной строки
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}
	if debug {
		cfg.Env = config.EnvLocal
	}

	// Логи клиента идут в stderr, чтобы не смешиваться с выводом команд
	log = logger.NewWithOutput(cfg.Env, os.Stderr, cfg.LogFile)

	var opts []client.Option
	if _, ok := cmd.Annotations[types.ConnectivityAnnotation]; ok {
		opts = append(opts, client.WithConnectivityCheck())
	}

	app, err = client.New(cmd.Context(), cfg, log, opts...)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	ctx := context.WithValue(cmd.Context(), types.ClientAppKey, app)
	ctx = context.WithValue(ctx, types.JSONOutputKey, jsonOutput)
	cmd.SetContext(ctx)

	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	if err := app.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия хранилища: %w", err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Ищем конфиг в стандартных местах
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		viper.AddConfigPath(filepath.Join(home, ".fieldsync"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// Конфиг не найден, используем значения по умолчанию
	}

	return config.MustLoad(), nil
}

func init() {
	// Цвет только для терминала
	color.NoColor = color.NoColor || !term.IsTerminal(int(os.Stdout.Fd()))

	// Глобальные флаги
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера (host:port)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sync.SyncCmd)

	rootCmd.AddCommand(queue.QueueCmd)
	queue.QueueCmd.AddCommand(queue.AddCmd)
	queue.QueueCmd.AddCommand(queue.ListCmd)
	queue.QueueCmd.AddCommand(queue.DeadCmd)

	rootCmd.AddCommand(snapshot.SnapshotCmd)
	snapshot.SnapshotCmd.AddCommand(snapshot.ListCmd)
	snapshot.SnapshotCmd.AddCommand(snapshot.GetCmd)
}
