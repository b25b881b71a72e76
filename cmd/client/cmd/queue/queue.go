package queue

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fieldsync/cmd/client/cmd/types"
)

var (
	method    string
	endpoint  string
	data      string
	headers   []string
	clearDead bool
)

var QueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Очередь записей на сервер",
	Long: `Записи, сделанные без сети, хранятся в локальной очереди и отправляются
на сервер в порядке добавления.`,
}

var AddCmd = &cobra.Command{
	Use:   "add",
	Short: "Добавить запись в очередь",
	Example: `  fieldsync queue add --method POST --endpoint /fieldflow/visits --data '{"prospect_id":1}'
  fieldsync queue add --method DELETE --endpoint /fieldflow/meetings/7
  echo '{"notes":"ok"}' | fieldsync queue add --method PATCH --endpoint /fieldflow/visits/3 --data -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		hdrs, err := parseHeaders(headers)
		if err != nil {
			return err
		}

		payload, err := readPayload(data, cmd.InOrStdin())
		if err != nil {
			return err
		}

		m, err := app.Enqueue(cmd.Context(), endpoint, method, hdrs, payload)
		if err != nil {
			return fmt.Errorf("ошибка добавления записи: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(os.Stdout, m)
		}
		fmt.Printf("%s Запись #%d добавлена в очередь: %s %s\n", types.OK("✓"), m.ID, m.Method, m.Endpoint)
		fmt.Printf("В очереди: %d\n", app.Status().PendingCount)
		return nil
	},
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать очередь",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		pending, err := app.PendingMutations(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка чтения очереди: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(os.Stdout, pending)
		}
		if len(pending) == 0 {
			fmt.Println("Очередь пуста")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tМЕТОД\tАДРЕС\tПОПЫТКИ\tДОБАВЛЕНА")
		for _, m := range pending {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", m.ID, m.Method, m.Endpoint, m.RetryCount, types.FormatTime(m.EnqueuedAt))
		}
		return w.Flush()
	},
}

var DeadCmd = &cobra.Command{
	Use:   "dead",
	Short: "Показать отброшенные записи",
	Long: `Записи, отклоненные сервером или исчерпавшие попытки, удаляются из очереди
и сохраняются здесь для разбора.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if clearDead {
			if err := app.ClearDeadLetters(cmd.Context()); err != nil {
				return fmt.Errorf("ошибка очистки: %w", err)
			}
			fmt.Println(types.OK("✅ Отброшенные записи удалены"))
			return nil
		}

		dead, err := app.DeadLetters(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка чтения отброшенных записей: %w", err)
		}

		if types.JSONOutput(cmd) {
			return types.PrintJSON(os.Stdout, dead)
		}
		if len(dead) == 0 {
			fmt.Println("Отброшенных записей нет")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tМЕТОД\tАДРЕС\tПРИЧИНА\tСТАТУС\tОТБРОШЕНА")
		for _, d := range dead {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
				d.Mutation.ID, d.Mutation.Method, d.Mutation.Endpoint, d.Reason, d.StatusCode, types.FormatTime(d.DiscardedAt))
		}
		return w.Flush()
	},
}

// parseHeaders разбирает заголовки вида "Name: value" или "Name=value"
func parseHeaders(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			name, value, ok = strings.Cut(h, "=")
		}
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("некорректный заголовок %q, ожидается Name: value", h)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}

// readPayload "-" означает чтение тела из stdin
func readPayload(data string, stdin io.Reader) ([]byte, error) {
	if data != "-" {
		return []byte(data), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения тела запроса: %w", err)
	}
	return b, nil
}

func init() {
	AddCmd.Flags().StringVarP(&method, "method", "X", "POST", "HTTP метод")
	AddCmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "адрес на сервере, например /fieldflow/visits")
	AddCmd.Flags().StringVarP(&data, "data", "d", "", "тело запроса (JSON); '-' читает из stdin")
	AddCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "дополнительный заголовок, Name: value")
	_ = AddCmd.MarkFlagRequired("endpoint")

	DeadCmd.Flags().BoolVar(&clearDead, "clear", false, "удалить все отброшенные записи")
}
