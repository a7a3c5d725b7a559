package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/auth"
	"github.com/vendora/vendora-backend/internal/database"
	"gopkg.in/yaml.v3"
)

type SeedData struct {
	Categories []Category `yaml:"categories"`
	Products   []Product  `yaml:"products"`
	Users      []User     `yaml:"users"`
}

type Category struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type Product struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	PriceCents  int64  `yaml:"price_cents"`
	Stock       int32  `yaml:"stock"`
	Inactive    bool   `yaml:"inactive"`
}

// User is either the owner or holds one of the seeded roles by name.
type User struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Owner    bool   `yaml:"owner"`
}

func loadSeedData(files []string) (*SeedData, error) {
	combined := &SeedData{}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", file, err)
		}

		var fileData SeedData
		if err := yaml.Unmarshal(data, &fileData); err != nil {
			return nil, fmt.Errorf("failed to parse YAML in %s: %w", file, err)
		}

		combined.Categories = append(combined.Categories, fileData.Categories...)
		combined.Products = append(combined.Products, fileData.Products...)
		combined.Users = append(combined.Users, fileData.Users...)
	}

	return combined, nil
}

func validateSeedData(data *SeedData) error {
	var errs []error

	categories := make(map[string]bool, len(data.Categories))
	for _, c := range data.Categories {
		if c.Name == "" || c.Slug == "" {
			errs = append(errs, fmt.Errorf("category %q: name and slug are required", c.Slug))
		}
		categories[c.Slug] = true
	}

	for _, p := range data.Products {
		if p.Name == "" || p.Slug == "" {
			errs = append(errs, fmt.Errorf("product %q: name and slug are required", p.Slug))
		}
		if p.PriceCents < 0 || p.Stock < 0 {
			errs = append(errs, fmt.Errorf("product %q: price and stock must not be negative", p.Slug))
		}
		if p.Category != "" && !categories[p.Category] {
			errs = append(errs, fmt.Errorf("product %q: unknown category %q", p.Slug, p.Category))
		}
	}

	owners := 0
	for _, u := range data.Users {
		if u.Email == "" || len(u.Password) < 8 {
			errs = append(errs, fmt.Errorf("user %q: email and a password of at least 8 characters are required", u.Email))
		}
		switch {
		case u.Owner && u.Role != "":
			errs = append(errs, fmt.Errorf("user %q: the owner holds no role", u.Email))
		case u.Owner:
			owners++
		case u.Role == "":
			errs = append(errs, fmt.Errorf("user %q: role is required", u.Email))
		}
	}
	if owners > 1 {
		errs = append(errs, errors.New("at most one owner may be seeded"))
	}

	fmt.Printf("  Categories: %d\n", len(data.Categories))
	fmt.Printf("  Products: %d\n", len(data.Products))
	fmt.Printf("  Users: %d\n", len(data.Users))
	return errors.Join(errs...)
}

func applySeedData(ctx context.Context, q *database.Queries, data *SeedData) error {
	categoryIDs := make(map[string]uuid.UUID)
	for _, c := range data.Categories {
		created, err := q.CreateCategory(ctx, c.Name, c.Slug)
		if err != nil {
			return fmt.Errorf("failed to create category %s: %w", c.Slug, err)
		}
		categoryIDs[c.Slug] = created.ID
		fmt.Printf("created category: %s\n", c.Slug)
	}

	for _, p := range data.Products {
		params := database.UpsertProductParams{
			Name:        p.Name,
			Slug:        p.Slug,
			Description: p.Description,
			PriceCents:  p.PriceCents,
			Stock:       p.Stock,
			Active:      !p.Inactive,
		}
		if id, ok := categoryIDs[p.Category]; ok {
			params.CategoryID = &id
		}
		if _, err := q.CreateProduct(ctx, params); err != nil {
			return fmt.Errorf("failed to create product %s: %w", p.Slug, err)
		}
		fmt.Printf("created product: %s\n", p.Slug)
	}

	for _, u := range data.Users {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", u.Email, err)
		}

		params := database.CreateUserParams{
			Email:        auth.NormalizeEmail(u.Email),
			Name:         u.Name,
			PasswordHash: hash,
			IsOwner:      u.Owner,
		}
		if !u.Owner {
			role, err := q.GetRoleByName(ctx, u.Role)
			if err != nil {
				return fmt.Errorf("role %s for %s: %w", u.Role, u.Email, err)
			}
			params.RoleID = &role.ID
		}

		if _, err := q.CreateUser(ctx, params); err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
		fmt.Printf("created user: %s\n", u.Email)
	}

	fmt.Println("seeding completed")
	return nil
}
