package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"accountsvc/internal/config"
	"accountsvc/internal/db"
	"accountsvc/internal/model"
	"accountsvc/internal/repository"
)

// SeedUser is one entry of the seed file.
type SeedUser struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	Password   string `json:"password"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage"`
}

func main() {
	file := flag.String("file", "users.json", "path to a JSON array of users")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	logger.Info("starting seed script", "file", *file)

	users, err := readSeedFile(*file)
	if err != nil {
		logger.Error("read seed file", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded users", "count", len(users))

	cfg := config.Load()
	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close(gormDB)

	if err := db.Migrate(gormDB, false); err != nil {
		logger.Error("run migrations", "error", err)
		os.Exit(1)
	}

	repo := repository.NewUserRepository(gormDB)
	created, updated, err := seedUsers(context.Background(), repo, users, bcrypt.DefaultCost)
	if err != nil {
		logger.Error("seed users", "error", err)
		os.Exit(1)
	}

	logger.Info("seed completed", "created", created, "updated", updated, "total", created+updated)
}

func readSeedFile(path string) ([]SeedUser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeSeedUsers(f)
}

func decodeSeedUsers(r io.Reader) ([]SeedUser, error) {
	var users []SeedUser
	if err := json.NewDecoder(r).Decode(&users); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	for i, u := range users {
		if strings.TrimSpace(u.Username) == "" || strings.TrimSpace(u.Email) == "" || u.Password == "" {
			return nil, fmt.Errorf("user %d: username, email and password are required", i)
		}
	}
	return users, nil
}

// seedUsers creates new users or updates existing ones matched by username or email.
func seedUsers(ctx context.Context, repo repository.UserRepository, users []SeedUser, cost int) (created int, updated int, err error) {
	for _, u := range users {
		username := strings.ToLower(strings.TrimSpace(u.Username))
		email := strings.ToLower(strings.TrimSpace(u.Email))

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
		if err != nil {
			return created, updated, fmt.Errorf("hash password for %s: %w", username, err)
		}

		existing, err := repo.FindByUsernameOrEmail(ctx, username, email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, updated, fmt.Errorf("error checking user %s: %w", username, err)
		}

		if existing != nil {
			existing.FullName = u.FullName
			existing.Password = string(hash)
			existing.Avatar = u.Avatar
			existing.CoverImage = u.CoverImage
			existing.RefreshToken = nil
			if err := repo.Save(ctx, existing); err != nil {
				return created, updated, fmt.Errorf("error updating user %s: %w", username, err)
			}
			updated++
			continue
		}

		user := &model.User{
			Username:   username,
			Email:      email,
			FullName:   u.FullName,
			Password:   string(hash),
			Avatar:     u.Avatar,
			CoverImage: u.CoverImage,
		}
		if err := repo.Create(ctx, user); err != nil {
			return created, updated, fmt.Errorf("error creating user %s: %w", username, err)
		}
		created++
	}
	return created, updated, nil
}
