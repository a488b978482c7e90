package cmd

import (
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	userdm "github.com/studymatch/backend/internal/core/datamodel/user"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample accounts for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"audit_logs", "password_reset_tokens", "user_sessions", "permission_requests", "users"} {
				if err := gormDB.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("cleared existing data")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)

		seedUser(gormDB, &userdm.User{
			Username:     "admin",
			Email:        "admin@studymatch.dev",
			PasswordHash: string(hash),
			Role:         userdm.RoleAdmin,
			Status:       userdm.StatusActive,
		})
		seedUser(gormDB, &userdm.User{
			Username:     "alice",
			Email:        "alice@studymatch.dev",
			PasswordHash: string(hash),
			Role:         userdm.RoleUser,
			Status:       userdm.StatusPending,
		})
	},
}

func seedUser(db *gorm.DB, u *userdm.User) {
	var exists int64
	db.Model(&userdm.User{}).Where("username = ?", u.Username).Count(&exists)
	if exists > 0 {
		fmt.Printf("user %s already exists, skipping\n", u.Username)
		return
	}
	if err := db.Create(u).Error; err != nil {
		log.Fatalf("failed to seed %s: %v", u.Username, err)
	}
	fmt.Printf("seeded user %s\n", u.Username)
}
