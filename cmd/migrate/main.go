package main

import (
	"log"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/config"
	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/database"
)

func main() {
	log.Println("Running ledger schema migrations...")

	cfg := config.Load()
	db, err := cfg.OpenDB()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("Migrations completed successfully")
}
