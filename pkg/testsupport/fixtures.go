package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-storefront/catalog"
)

// UpdateGoldenEnv rewrites golden files instead of comparing when set to 1.
const UpdateGoldenEnv = "UPDATE_GOLDEN"

// LoadFixture reads a fixture file relative to the calling test package.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON unmarshals a JSON fixture into dest.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	if err := json.Unmarshal(LoadFixture(t, path), dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// WriteGolden writes data to a golden file, creating parent directories.
func WriteGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write golden file %s: %v", path, err)
	}
}

// CompareWithGolden compares actual with the golden file at path. A missing
// golden file, or UPDATE_GOLDEN=1, writes actual instead.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	if os.Getenv(UpdateGoldenEnv) == "1" {
		WriteGolden(t, path, actual)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if strings.TrimSpace(string(actual)) != strings.TrimSpace(string(expected)) {
		t.Errorf("output mismatch for %s:\nexpected:\n%s\nactual:\n%s", path, expected, actual)
	}
}

// CompareWithGoldenJSON marshals actual with indentation and compares it.
func CompareWithGoldenJSON(t testing.TB, path string, actual any) {
	t.Helper()

	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal %s: %v", path, err)
	}
	CompareWithGolden(t, path, data)
}

// FixturePath joins filename onto the calling package's testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath joins filename onto testdata/golden.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}

// SQLiteDSN returns an in-memory sqlite DSN private to the running test.
func SQLiteDSN(t testing.TB) string {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, t.Name())
	return fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
}

// ProductFixture is the on-disk shape of a seeded product.
type ProductFixture struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Price        float64   `json:"price"`
	OldPrice     *float64  `json:"oldPrice"`
	Category     string    `json:"category"`
	Images       []string  `json:"images"`
	IsTrending   bool      `json:"isTrending"`
	IsTopProduct bool      `json:"isTopProduct"`
	Description  string    `json:"description"`
	Rating       float64   `json:"rating"`
	Stock        int       `json:"stock"`
	Tags         []string  `json:"tags"`
	Brand        string    `json:"brand"`
	SKU          *string   `json:"sku"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Product converts the fixture into a catalog product.
func (f ProductFixture) Product() (*catalog.Product, error) {
	id, err := uuid.Parse(f.ID)
	if err != nil {
		return nil, fmt.Errorf("fixture %q: %w", f.Name, err)
	}
	images := f.Images
	if images == nil {
		images = []string{}
	}
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	return &catalog.Product{
		ID:           id,
		Name:         f.Name,
		Price:        f.Price,
		OldPrice:     f.OldPrice,
		Category:     f.Category,
		Images:       images,
		IsTrending:   f.IsTrending,
		IsTopProduct: f.IsTopProduct,
		Description:  f.Description,
		Rating:       f.Rating,
		Stock:        f.Stock,
		Tags:         tags,
		Brand:        f.Brand,
		SKU:          f.SKU,
		CreatedAt:    f.CreatedAt.UTC(),
		UpdatedAt:    f.CreatedAt.UTC(),
	}, nil
}

// ProductsFixturePath locates the shared products fixture regardless of the
// calling package.
func ProductsFixturePath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", "products.json")
}

// LoadProducts reads the shared products fixture.
func LoadProducts(t testing.TB) []*catalog.Product {
	t.Helper()

	var fixtures []ProductFixture
	LoadFixtureJSON(t, ProductsFixturePath(), &fixtures)

	products := make([]*catalog.Product, 0, len(fixtures))
	for _, f := range fixtures {
		p, err := f.Product()
		if err != nil {
			t.Fatalf("invalid product fixture: %v", err)
		}
		products = append(products, p)
	}
	return products
}

// GenerateProducts builds n products in category with ascending prices and
// creation times one minute apart, starting at base.
func GenerateProducts(n int, category string, base time.Time) []*catalog.Product {
	out := make([]*catalog.Product, 0, n)
	for i := 0; i < n; i++ {
		created := base.Add(time.Duration(i) * time.Minute).UTC()
		out = append(out, &catalog.Product{
			ID:        uuid.New(),
			Name:      fmt.Sprintf("%s item %03d", category, i),
			Price:     float64(i + 1),
			Category:  category,
			Images:    []string{},
			Tags:      []string{},
			CreatedAt: created,
			UpdatedAt: created,
		})
	}
	return out
}
