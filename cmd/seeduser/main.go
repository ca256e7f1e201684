// seeduser creates an operator account so the first admin can log in.
//
//	seeduser -username admin -password 'secret123' [-role admin] [-branch <uuid>]
package main

import (
	"context"
	"flag"
	"fmt"

	"goldledger/internal/app"
	"goldledger/internal/config"
	"goldledger/internal/dto"
	"goldledger/internal/model"

	"github.com/rs/zerolog/log"
)

func main() {
	username := flag.String("username", "admin", "login name")
	password := flag.String("password", "", "password (min 8 chars)")
	name := flag.String("name", "Administrator", "display name")
	role := flag.String("role", model.RoleAdmin, "clerk | manager | admin")
	branch := flag.String("branch", "", "restrict the user to one branch")
	flag.Parse()

	switch *role {
	case model.RoleClerk, model.RoleManager, model.RoleAdmin:
	default:
		log.Fatal().Str("role", *role).Msg("unknown role")
	}
	if len(*password) < 8 {
		log.Fatal().Msg("-password must have at least 8 characters")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	app.ConfigureLogging(cfg)
	if cfg.StoreBackend == "memory" {
		log.Fatal().Msg("seeduser needs STORE_BACKEND=postgres")
	}

	a, err := app.Build(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise application")
	}
	defer a.Close()

	req := dto.CreateUserRequest{Username: *username, Name: *name, Password: *password, Role: *role}
	if *branch != "" {
		req.BranchID = branch
	}
	user, err := a.Auth.CreateUser(context.Background(), req)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create user")
	}
	fmt.Printf("user %q created with role %s (id %s)\n", user.Username, user.Role, user.ID)
}
