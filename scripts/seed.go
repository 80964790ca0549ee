package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Seeds the CEO and support staff accounts. Run once against a fresh
// database after migrations:
//
//	CEO_PASSWORD=... STAFF_PASSWORD=... go run scripts/seed.go
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ceoPassword := os.Getenv("CEO_PASSWORD")
	staffPassword := os.Getenv("STAFF_PASSWORD")
	if ceoPassword == "" || staffPassword == "" {
		log.Fatal("CEO_PASSWORD and STAFF_PASSWORD are required")
	}

	// Build connection string
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	// Connect to database
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to database successfully")

	seed := []struct {
		username     string
		email        string
		password     string
		role         string
		referralCode string
	}{
		{"ceo", "ceo@example.com", ceoPassword, "ceo", "CEOX001"},
		{"support", "support@example.com", staffPassword, "staff", "SUPP001"},
	}

	for _, s := range seed {
		hashed, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash password for %s: %v", s.username, err)
		}

		res, err := db.Exec(`
			INSERT INTO users (username, email, password, role, points, tier, level, referral_code, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 0, 'bronze', 1, $5, NOW(), NOW())
			ON CONFLICT (username) DO NOTHING
		`, s.username, s.email, string(hashed), s.role, s.referralCode)
		if err != nil {
			log.Fatalf("Failed to seed %s: %v", s.username, err)
		}

		rows, _ := res.RowsAffected()
		if rows == 0 {
			log.Printf("User %s already exists, skipping", s.username)
		} else {
			log.Printf("Seeded %s account: %s", s.role, s.username)
		}
	}

	log.Println("✅ Seeding completed successfully!")
}
