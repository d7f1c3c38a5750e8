package cmd

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/expensio/expense-service/internal/category"
	"github.com/expensio/expense-service/internal/core/access"
	"github.com/expensio/expense-service/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm connection: %v", err)
		}

		if clearData {
			fmt.Println("Clearing existing data...")
			for _, table := range []string{"expense_receipts", "expenses", "categories", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)

		admin := seedUser(db, &user.User{
			FirstName:    "Ava",
			LastName:     "Admin",
			Email:        "admin@expensio.dev",
			PasswordHash: string(hash),
			Role:         access.RoleAdmin,
			Department:   "Operations",
			IsActive:     true,
		})

		manager := seedUser(db, &user.User{
			FirstName:    "Marta",
			LastName:     "Manager",
			Email:        "manager@expensio.dev",
			PasswordHash: string(hash),
			Role:         access.RoleManager,
			Department:   "Engineering",
			IsActive:     true,
		})

		seedUser(db, &user.User{
			FirstName:    "Evan",
			LastName:     "Employee",
			Email:        "employee@expensio.dev",
			PasswordHash: string(hash),
			Role:         access.RoleEmployee,
			Department:   "Engineering",
			ManagerID:    &manager.ID,
			IsActive:     true,
		})

		monthly := decimal.NewFromInt(500)
		categories := []category.Category{
			{Name: "Travel", Description: "Flights, trains, taxis and mileage", Color: "#007bff", Icon: "plane", IsActive: true, CreatedByID: admin.ID},
			{Name: "Meals", Description: "Client meals and team lunches", Color: "#28a745", Icon: "utensils", MonthlyBudget: &monthly, IsActive: true, CreatedByID: admin.ID},
			{Name: "Office Supplies", Description: "Desk equipment and stationery", Color: "#ffc107", Icon: "paperclip", IsActive: true, CreatedByID: admin.ID},
			{Name: "Software", Description: "Licenses and subscriptions", Color: "#6f42c1", Icon: "laptop", IsActive: true, CreatedByID: admin.ID},
		}
		for i := range categories {
			var existing category.Category
			err := db.Where("name = ?", categories[i].Name).First(&existing).Error
			if err == gorm.ErrRecordNotFound {
				if err := db.Create(&categories[i]).Error; err != nil {
					log.Fatalf("failed to seed category %s: %v", categories[i].Name, err)
				}
				fmt.Println("Seeded category:", categories[i].Name)
			}
		}

		fmt.Println("Seeding complete. Default password: password")
	},
}

func seedUser(db *gorm.DB, u *user.User) *user.User {
	var existing user.User
	err := db.Where("email = ?", u.Email).First(&existing).Error
	if err == nil {
		fmt.Println("user already exists:", u.Email)
		return &existing
	}
	if err != gorm.ErrRecordNotFound {
		log.Fatalf("failed to check user %s: %v", u.Email, err)
	}
	if err := db.Create(u).Error; err != nil {
		log.Fatalf("failed to seed user %s: %v", u.Email, err)
	}
	fmt.Println("Seeded user:", u.Email)
	return u
}
