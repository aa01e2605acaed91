package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalogFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keywords.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoad_ValidCatalog(t *testing.T) {
	path := writeCatalogFile(t, `{
		"categories": [
			{"name": "電器", "complex_products": ["咖啡機"], "single_products": ["杯"], "evaluation_words": ["耐用"]}
		],
		"common_evaluation_words": ["好", "棒"]
	}`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Categories) != 1 || c.Categories[0].Name != "電器" {
		t.Fatalf("unexpected catalog: %+v", c)
	}
	if len(c.CommonEvaluationWords) != 2 {
		t.Fatalf("common words = %v", c.CommonEvaluationWords)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := writeCatalogFile(t, `{"categories": [`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name string
		cat  Catalog
	}{
		{"no categories", Catalog{}},
		{"empty category name", Catalog{Categories: []Category{
			{Name: " ", SingleProducts: []string{"杯"}},
		}}},
		{"duplicate category", Catalog{Categories: []Category{
			{Name: "電器", SingleProducts: []string{"杯"}},
			{Name: "電器", SingleProducts: []string{"鍋"}},
		}}},
		{"no product keywords", Catalog{Categories: []Category{
			{Name: "電器", EvaluationWords: []string{"好"}},
		}}},
		{"blank complex keyword", Catalog{Categories: []Category{
			{Name: "電器", ComplexProducts: []string{""}},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cat.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
