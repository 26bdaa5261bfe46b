package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user"
)

func (a *app) listCmd() *cobra.Command {
	var (
		mode string
		page int
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Long: `List users from the remote service. Incremental mode shows the first
page and grows with --all; paged mode shows one page (--page, 1-based).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if page > 0 && all {
				return errors.New("--page and --all cannot be combined")
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			m := a.cfg.ListMode()
			if mode != "" {
				if m, err = user.ParseMode(mode); err != nil {
					return err
				}
			}
			switch {
			case page > 0:
				m = user.ModePaged
			case all:
				m = user.ModeIncremental
			}

			ctx := cmd.Context()
			list := svc.List()
			if err := list.Mount(ctx, m); err != nil {
				return err
			}
			defer list.Unmount()

			if page > 1 {
				if err := list.GoToPage(ctx, page-1); err != nil {
					return err
				}
			}
			if all {
				for s := list.Snapshot(); s.HasMore; {
					if err := list.LoadMore(ctx); err != nil {
						return err
					}
					next := list.Snapshot()
					if next.Cursor <= s.Cursor {
						break
					}
					s = next
				}
			}
			printSnapshot(cmd.OutOrStdout(), list.Snapshot(), list.PageSize())
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "retrieval mode: incremental or paged (default from config)")
	cmd.Flags().IntVar(&page, "page", 0, "page to show in paged mode, starting at 1")
	cmd.Flags().BoolVar(&all, "all", false, "keep loading until every user is listed")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			u, err := svc.Get(cmd.Context(), id)
			if err != nil {
				return errors.New(user.DisplayMessage(err))
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}
