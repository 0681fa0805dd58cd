package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"vmctl/internal/storage"
)

func newHostCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Сведения об узле",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Показать состояние узла",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := s.exec(cmd, "host", "status")
			if err != nil {
				return err
			}
			return s.emit(cmd, data, func(w io.Writer) error {
				m, _ := data.(map[string]interface{})
				keys := make([]string, 0, len(m))
				for k := range m {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				tw := newTable(w)
				for _, k := range keys {
					fmt.Fprintf(tw, "%s\t%v\n", k, m[k])
				}
				return tw.Flush()
			})
		},
	})
	return cmd
}

type historyRow struct {
	TS        time.Time `json:"ts"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
}

func newHistoryCmd(s *state) *cobra.Command {
	var limit int
	var action string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Последние выполненные команды",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := s.environment(cmd)
			if err != nil {
				return err
			}
			if env.History == nil {
				return s.fail(cmd, "history_disabled", errHistoryDisabled)
			}
			events, err := env.History.QueryAudit(cmd.Context(), storage.AuditQuery{Action: action, Limit: limit})
			if err != nil {
				return s.fail(cmd, "internal_error", fmt.Errorf("query history: %w", err))
			}
			rows := make([]historyRow, 0, len(events))
			for _, ev := range events {
				rows = append(rows, historyRow{TS: ev.TS, Subject: ev.Subject, Action: ev.Action, Status: ev.Status, RequestID: ev.RequestID})
			}
			return s.emit(cmd, rows, func(w io.Writer) error {
				tw := newTable(w)
				fmt.Fprintln(tw, "TIME\tSUBJECT\tACTION\tSTATUS\tREQUEST")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.TS.Local().Format(time.DateTime), r.Subject, r.Action, r.Status, r.RequestID)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "сколько записей показать")
	cmd.Flags().StringVar(&action, "action", "", "фильтр по действию, например vm:start")
	return cmd
}
