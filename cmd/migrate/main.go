package main

import (
	"log"
	"os"

	"ai-budtender-be/internal/model"
	"ai-budtender-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting catalog migration...")

	// 3. Extensions
	log.Println("Step 1: Enabling pgvector...")
	if err := database.EnsureVectorExtension(db); err != nil {
		log.Fatalf("Error: Failed to enable vector extension: %v", err)
	}

	// 4. Tables
	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.Attribute{},
		&model.Strain{},
		&model.StrainEmbedding{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Indexes GORM cannot express
	log.Println("Step 3: Creating search indexes...")
	indexSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_strains_name_lower ON strains (LOWER(name));`,
		`CREATE INDEX IF NOT EXISTS idx_strain_attributes_attribute ON strain_attributes (attribute_id);`,
		`CREATE INDEX IF NOT EXISTS idx_strain_embeddings_hnsw ON strain_embeddings USING hnsw (embedding vector_cosine_ops);`,
	}
	for _, sql := range indexSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to create index: %v. Continuing...", err)
		}
	}

	log.Println("Migration completed!")
}
