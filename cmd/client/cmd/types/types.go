// Package types общие для команд ключи контекста и вывод.
package types

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fieldsync/internal/app/client"
)

type contextKey string

const (
	ClientAppKey  contextKey = "app"
	JSONOutputKey contextKey = "json"
)

// ConnectivityAnnotation команда с этой аннотацией проверяет сервер при запуске
const ConnectivityAnnotation = "connectivity"

const TimeFormat = "2006-01-02 15:04:05"

var (
	OK    = color.New(color.FgGreen).SprintFunc()
	Warn  = color.New(color.FgYellow).SprintFunc()
	Fail  = color.New(color.FgRed).SprintFunc()
	Title = color.New(color.Bold).SprintFunc()
)

// App приложение из контекста команды
func App(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}

// JSONOutput включен ли вывод в формате JSON
func JSONOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Context().Value(JSONOutputKey).(bool)
	return v
}

func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatTime пустое время выводится как "никогда"
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "никогда"
	}
	return t.Local().Format(TimeFormat)
}
