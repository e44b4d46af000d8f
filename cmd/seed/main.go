package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"ai-budtender-be/internal/model"
	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/database"
	"ai-budtender-be/pkg/events"
	pktNats "ai-budtender-be/pkg/nats"

	"github.com/joho/godotenv"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// strainRecord is one entry of the catalog export.
type strainRecord struct {
	Name        string                 `json:"name"`
	Type        string                 `json:"type"`
	ThcLevel    string                 `json:"thc_level"`
	CbdLevel    string                 `json:"cbd_level"`
	Description string                 `json:"description"`
	Effects     []string               `json:"effects"`
	HelpsWith   []string               `json:"helps_with"`
	Negatives   []string               `json:"negatives"`
	Flavors     []string               `json:"flavors"`
	Terpenes    []string               `json:"terpenes"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// catalogFile holds the strains plus localized attribute names keyed by language then canonical name.
type catalogFile struct {
	Strains      []strainRecord               `json:"strains"`
	Translations map[string]map[string]string `json:"translations"`
}

func main() {
	file := flag.String("file", "data/strains.json", "catalog export to import")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Error: Failed to read %s: %v", *file, err)
	}
	var catalog catalogFile
	if err := json.Unmarshal(raw, &catalog); err != nil {
		log.Fatalf("Error: Invalid catalog file: %v", err)
	}

	log.Printf("Seeding %d strains...", len(catalog.Strains))

	var ids []int64
	err = db.Transaction(func(tx *gorm.DB) error {
		attrs := newAttributeSet(tx, catalog.Translations)
		for _, rec := range catalog.Strains {
			id, err := upsertStrain(tx, attrs, rec)
			if err != nil {
				log.Printf("Error seeding strain '%s': %v", rec.Name, err)
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error: Seeding aborted: %v", err)
	}
	log.Printf("Seeded %d strains", len(ids))

	notify(ids)
	log.Println("Catalog seeding completed!")
}

func upsertStrain(tx *gorm.DB, attrs *attributeSet, rec strainRecord) (int64, error) {
	s := model.Strain{
		Name:        rec.Name,
		Category:    rec.Type,
		ThcLevel:    rec.ThcLevel,
		CbdLevel:    rec.CbdLevel,
		Description: rec.Description,
		Metadata:    datatypes.JSONMap(rec.Metadata),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "thc_level", "cbd_level", "description", "metadata", "updated_at"}),
	}).Create(&s).Error
	if err != nil {
		return 0, err
	}
	if s.Id == 0 {
		if err := tx.Where("name = ?", rec.Name).First(&s).Error; err != nil {
			return 0, err
		}
	}

	var linked []model.Attribute
	for kind, names := range map[string][]string{
		"effects":    rec.Effects,
		"helps_with": rec.HelpsWith,
		"negatives":  rec.Negatives,
		"flavors":    rec.Flavors,
		"terpenes":   rec.Terpenes,
	} {
		for _, name := range names {
			a, err := attrs.get(kind, name)
			if err != nil {
				return 0, err
			}
			linked = append(linked, a)
		}
	}
	if err := tx.Model(&s).Association("Attributes").Replace(linked); err != nil {
		return 0, err
	}
	return s.Id, nil
}

// attributeSet creates attribute rows on first use and remembers them for the rest of the import.
type attributeSet struct {
	tx           *gorm.DB
	translations map[string]map[string]string
	seen         map[string]model.Attribute
}

func newAttributeSet(tx *gorm.DB, translations map[string]map[string]string) *attributeSet {
	return &attributeSet{tx: tx, translations: translations, seen: make(map[string]model.Attribute)}
}

func (s *attributeSet) get(kind, name string) (model.Attribute, error) {
	key := kind + "|" + name
	if a, ok := s.seen[key]; ok {
		return a, nil
	}

	tr := datatypes.JSONMap{}
	for lang, names := range s.translations {
		if localized, ok := names[name]; ok {
			tr[lang] = localized
		}
	}
	a := model.Attribute{Kind: kind, Name: name, Translations: tr}
	err := s.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"translations"}),
	}).Create(&a).Error
	if err != nil {
		return model.Attribute{}, err
	}
	if a.Id == 0 {
		if err := s.tx.Where("kind = ? AND name = ?", kind, name).First(&a).Error; err != nil {
			return model.Attribute{}, err
		}
	}
	s.seen[key] = a
	return a, nil
}

// notify asks running servers to refresh their vocabulary and embed the seeded strains.
func notify(ids []int64) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		log.Println("Info: NATS_URL not set, run POST /api/recommend/v1/taxonomy/refresh and publish catalog_updated to build embeddings")
		return
	}
	pub, err := pktNats.NewPublisher(url, logger.NewNopLogger())
	if err != nil {
		log.Printf("Warn: Failed to connect to NATS: %v", err)
		return
	}
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	event := events.BaseEvent{
		Type:       events.TypeCatalogUpdated,
		Data:       map[string]interface{}{"strain_ids": ids},
		OccurredAt: time.Now(),
	}
	if err := pub.Publish(ctx, event); err != nil {
		log.Printf("Warn: Failed to publish %s: %v", events.TypeCatalogUpdated, err)
		return
	}
	log.Printf("Published %s for %d strains", events.TypeCatalogUpdated, len(ids))
}
