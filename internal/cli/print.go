package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/entity"
)

func printSnapshot(w io.Writer, s user.Snapshot, pageSize int) {
	pending := make(map[int64]user.Action, len(s.Pending))
	for _, t := range s.Pending {
		pending[t.UserID] = t.Action
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tPHONE\tCITY\t")
	for _, u := range s.Users {
		marker := ""
		if a, ok := pending[u.ID]; ok {
			marker = "(" + string(a) + " pending)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Phone, u.Address.City, marker)
	}
	_ = tw.Flush()

	if s.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", s.Error)
	}
	switch {
	case len(s.Users) == 0 && s.Error == "":
		fmt.Fprintln(w, "No users found")
	case s.Mode == user.ModePaged:
		fmt.Fprintf(w, "Page %d of %d (%s users, %d per page)\n", s.PageIndex+1, max(s.PageCount, 1), humanize.Comma(int64(s.Total)), pageSize)
	default:
		fmt.Fprintf(w, "Showing %s of %s users\n", humanize.Comma(int64(len(s.Users))), humanize.Comma(int64(s.Total)))
		if !s.HasMore {
			fmt.Fprintln(w, "No more users to load")
		}
	}
	if s.Notice != nil {
		fmt.Fprintln(w, s.Notice.Message)
	}
}

func printUser(w io.Writer, u *entity.User) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", u.ID)
	fmt.Fprintf(tw, "Username:\t%s\n", u.Username)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "Phone:\t%s\n", u.Phone)
	fmt.Fprintf(tw, "City:\t%s\n", u.Address.City)
	fmt.Fprintf(tw, "State:\t%s\n", u.Address.State)
	fmt.Fprintf(tw, "Postal code:\t%s\n", u.Address.PostalCode)
	fmt.Fprintf(tw, "Country:\t%s\n", u.Address.Country)
	_ = tw.Flush()
}
