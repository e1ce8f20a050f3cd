package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mrlokans/bookexchange/internal/services"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// RegisterCommand creates a user account from the command line.
type RegisterCommand struct {
	Username string
	Email    string
	Password string
	FullName string
	Address  string
}

func (cmd *RegisterCommand) Run(ctx context.Context, users storage.UserStore, out io.Writer) error {
	user, err := services.NewAccountService(users).Register(ctx, services.RegisterInput{
		Username: cmd.Username,
		Password: cmd.Password,
		Email:    cmd.Email,
		FullName: cmd.FullName,
		Address:  cmd.Address,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Registered user %s (id %s)\n", user.Username, user.ID)
	return nil
}
