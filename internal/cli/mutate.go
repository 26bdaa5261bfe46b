package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/entity"
)

var errNeedsYes = errors.New("stdin is not a terminal; pass --yes to delete")

type userFlags struct {
	username   string
	email      string
	phone      string
	city       string
	state      string
	postalCode string
	country    string
}

func (f *userFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.username, "username", "", "user name")
	fs.StringVar(&f.email, "email", "", "email address")
	fs.StringVar(&f.phone, "phone", "", "phone number")
	fs.StringVar(&f.city, "city", "", "address city")
	fs.StringVar(&f.state, "state", "", "address state")
	fs.StringVar(&f.postalCode, "postal-code", "", "address postal code")
	fs.StringVar(&f.country, "country", "", "address country")
}

// apply copies every flag the caller set onto data.
func (f *userFlags) apply(fs *pflag.FlagSet, data *entity.CreateUserData) {
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("username", &data.Username, f.username)
	set("email", &data.Email, f.email)
	set("phone", &data.Phone, f.phone)

	if !fs.Changed("city") && !fs.Changed("state") && !fs.Changed("postal-code") && !fs.Changed("country") {
		return
	}
	if data.Address == nil {
		data.Address = &entity.Address{}
	}
	set("city", &data.Address.City, f.city)
	set("state", &data.Address.State, f.state)
	set("postal-code", &data.Address.PostalCode, f.postalCode)
	set("country", &data.Address.Country, f.country)
}

func (a *app) createCmd() *cobra.Command {
	var flags userFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			var data entity.CreateUserData
			flags.apply(cmd.Flags(), &data)
			u, err := svc.Create(cmd.Context(), data)
			if err != nil {
				return mutationError(err)
			}
			printNotice(cmd.OutOrStdout(), svc)
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
	flags.bind(cmd.Flags())
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var flags userFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a user; fields not given keep their current value",
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
			current, err := svc.Get(cmd.Context(), id)
			if err != nil {
				return mutationError(err)
			}
			data := entity.FromUser(current)
			flags.apply(cmd.Flags(), &data)
			u, err := svc.Update(cmd.Context(), id, data)
			if err != nil {
				return mutationError(err)
			}
			printNotice(cmd.OutOrStdout(), svc)
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
	flags.bind(cmd.Flags())
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				if !a.stdinIsTerminal() {
					return errNeedsYes
				}
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete user %d?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Remove(cmd.Context(), id); err != nil {
				return mutationError(err)
			}
			printNotice(cmd.OutOrStdout(), svc)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirm asks a y/N question; anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func printNotice(w io.Writer, svc *user.UserService) {
	if n := svc.List().Notices().Current(); n != nil {
		fmt.Fprintln(w, n.Message)
	}
}

// mutationError turns service errors into what the user should read.
func mutationError(err error) error {
	var ve *user.ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return errors.New(user.DisplayMessage(err))
}
