package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"ai-budtender-be/internal/model"
	"ai-budtender-be/internal/repository/unitofwork"
	"ai-budtender-be/internal/service"
	"ai-budtender-be/pkg/database"
	"ai-budtender-be/pkg/recommend/catalog"
	"ai-budtender-be/pkg/recommend/criteria"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCatalogAgainstPostgres(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err, "Failed to connect to DB")
	require.NoError(t, database.EnsureVectorExtension(gormDB))
	require.NoError(t, gormDB.AutoMigrate(&model.Attribute{}, &model.Strain{}, &model.StrainEmbedding{}))

	suffix := fmt.Sprintf("-it-%d", time.Now().UnixNano())
	ids := seedStrains(t, gormDB, suffix)
	t.Cleanup(func() {
		gormDB.Exec("DELETE FROM strain_embeddings WHERE strain_id IN ?", ids)
		gormDB.Exec("DELETE FROM strain_attributes WHERE strain_id IN ?", ids)
		gormDB.Exec("DELETE FROM strains WHERE id IN ?", ids)
	})

	svc := service.NewCatalogService(unitofwork.NewRepositoryFactory(gormDB))
	ctx := context.Background()

	t.Run("Search cleans numeric text", func(t *testing.T) {
		items, err := svc.Search(ctx, catalog.Query{
			THC:     criteria.Compare{Cmp: criteria.OpGte, Value: 20},
			Effects: []string{"sleepy" + suffix},
			Limit:   10,
		})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Strong Sleeper"+suffix, items[0].Name)
	})

	t.Run("Exclusions reject any hit", func(t *testing.T) {
		items, err := svc.Search(ctx, catalog.Query{
			Effects:          []string{"sleepy" + suffix},
			ExcludeNegatives: []string{"Paranoid" + suffix},
			Limit:            10,
		})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Mild Sleeper"+suffix, items[0].Name)
	})

	t.Run("Embeddings rank by distance", func(t *testing.T) {
		uow := unitofwork.NewRepositoryFactory(gormDB).NewUnitOfWork(ctx)
		near := make([]float32, 768)
		far := make([]float32, 768)
		near[0], far[1] = 1, 1
		require.NoError(t, uow.StrainRepository().UpsertEmbedding(ctx, ids[0], near, "near"))
		require.NoError(t, uow.StrainRepository().UpsertEmbedding(ctx, ids[1], far, "far"))

		rows, err := svc.NearestIDs(ctx, near, ids, 2)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, ids[0], rows[0].ID)
		assert.Less(t, rows[0].Distance, rows[1].Distance)
	})
}

func seedStrains(t *testing.T, db *gorm.DB, suffix string) []int64 {
	t.Helper()
	sleepy := model.Attribute{Kind: "effects", Name: "Sleepy" + suffix}
	paranoid := model.Attribute{Kind: "negatives", Name: "Paranoid" + suffix}
	require.NoError(t, db.Create(&sleepy).Error)
	require.NoError(t, db.Create(&paranoid).Error)
	t.Cleanup(func() {
		db.Delete(&model.Attribute{}, []int64{sleepy.Id, paranoid.Id})
	})

	strains := []model.Strain{
		{Name: "Strong Sleeper" + suffix, Category: "Indica", ThcLevel: "24%", Attributes: []model.Attribute{sleepy}},
		{Name: "Mild Sleeper" + suffix, Category: "Indica", ThcLevel: "N/A", Attributes: []model.Attribute{sleepy}},
		{Name: "Edgy Sleeper" + suffix, Category: "Hybrid", ThcLevel: "15-18%", Attributes: []model.Attribute{sleepy, paranoid}},
	}
	strains[0].Attributes = append(strains[0].Attributes, paranoid)

	ids := make([]int64, 0, len(strains))
	for i := range strains {
		require.NoError(t, db.Create(&strains[i]).Error)
		ids = append(ids, strains[i].Id)
	}
	return ids
}
