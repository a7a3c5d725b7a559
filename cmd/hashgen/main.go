package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/vendora/vendora-backend/internal/auth"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/database"
)

// Creates a back-office account. Pass "owner" as the role to create the
// store owner, who holds no role at all.
func main() {
	_ = godotenv.Load()

	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <email> <password> <role|owner>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s admin@vendora.local mypassword administrator\n", os.Args[0])
		os.Exit(1)
	}

	email := auth.NormalizeEmail(os.Args[1])
	password := os.Args[2]
	role := os.Args[3]

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating hash: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	db, err := database.New(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	params := database.CreateUserParams{
		Email:        email,
		Name:         email,
		PasswordHash: hash,
		IsOwner:      role == "owner",
	}
	if !params.IsOwner {
		r, err := db.Queries().GetRoleByName(ctx, role)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unknown role %q: %v\n", role, err)
			os.Exit(1)
		}
		params.RoleID = &r.ID
	}

	user, err := db.Queries().CreateUser(ctx, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("User created successfully: %s (%s)\n", user.Email, role)
}
