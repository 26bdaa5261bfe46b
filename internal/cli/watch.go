package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user"
)

func (a *app) watchCmd() *cobra.Command {
	var (
		interval int
		mode     string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the first page on screen and reload it on a countdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			list := svc.List()

			m := a.cfg.ListMode()
			if mode != "" {
				if m, err = user.ParseMode(mode); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("interval") {
				if err := list.SetRefreshInterval(interval); err != nil {
					return err
				}
			}
			if !list.Policy().Enabled {
				list.ToggleAutoRefresh()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var (
				mu      sync.Mutex
				last    time.Time
				lastErr string
			)
			show := func(s user.Snapshot) {
				if !s.Mounted || s.IsLoading {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if s.UpdatedAt.Equal(last) && s.Error == lastErr {
					return
				}
				last, lastErr = s.UpdatedAt, s.Error
				fmt.Fprintf(out, "\n[%s] refreshing every %ds\n", s.UpdatedAt.Format(time.TimeOnly), s.Refresh.IntervalSeconds)
				printSnapshot(out, s, list.PageSize())
			}
			cancel := list.Subscribe(show)
			defer cancel()

			if err := list.Mount(ctx, m); err != nil {
				return err
			}
			defer list.Unmount()
			show(list.Snapshot())

			err = user.NewDriver(list, a.clock, a.logger).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVar(&interval, "interval", user.DefaultRefreshInterval, "seconds between reloads: 5, 10, 20, 30 or 60")
	cmd.Flags().StringVar(&mode, "mode", "", "retrieval mode: incremental or paged (default from config)")
	return cmd
}
