package recipe

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"promo-meal-planner/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexJSON = `[
  {"id": "r1", "title": "Chicken curry", "ingredients": ["chicken breast", "rice"], "instructions": "Cook.", "image_name": "curry", "embedding": [1, 0, 0]},
  {"id": "r2", "title": "Cheese toast", "ingredients": "bread, gouda cheese", "instructions": "Toast.", "embedding": [0, 1, 0]},
  {"id": "r3", "title": "Mixed salad", "ingredients": ["lettuce"], "instructions": "Mix.", "embedding": [0.7, 0.7, 0]}
]`

func writeIndex(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipe_index.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadIndex(t *testing.T) {
	idx, err := LoadIndex(writeIndex(t, indexJSON))
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 3, idx.Dimension())
	assert.Equal(t, Ingredients{"bread, gouda cheese"}, idx.recipes[1].Ingredients)
}

func TestLoadIndex_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `[{"id":`},
		{"empty", `[]`},
		{"dimension mismatch", `[{"id":"a","embedding":[1,0]},{"id":"b","embedding":[1,0,0]}]`},
		{"duplicate id", `[{"id":"a","embedding":[1]},{"id":"a","embedding":[0]}]`},
		{"missing id", `[{"title":"x","embedding":[1]}]`},
		{"missing embedding", `[{"id":"a"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadIndex(writeIndex(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadIndex(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadIndex(writeIndex(t, `[]`))
	assert.ErrorIs(t, err, common.ErrRecipeIndexEmpty)
}

func TestIndex_Search(t *testing.T) {
	idx, err := LoadIndex(writeIndex(t, indexJSON))
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "r1", hits[0].Recipe.ID)
	assert.Equal(t, "r3", hits[1].Recipe.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	all, err := idx.Search(context.Background(), []float32{0, 1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.InDelta(t, 1.0, all[0].Score, 1e-9)

	none, err := idx.Search(context.Background(), []float32{0, 1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIndex_SearchErrors(t *testing.T) {
	idx, err := LoadIndex(writeIndex(t, indexJSON))
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), []float32{1, 0}, 1)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = idx.Search(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, context.Canceled)

	var empty *Index
	_, err = empty.Search(context.Background(), []float32{1}, 1)
	assert.ErrorIs(t, err, common.ErrRecipeIndexEmpty)
}

func TestIndex_ZeroVector(t *testing.T) {
	idx, err := NewIndex([]*Recipe{{ID: "z", Embedding: []float32{0, 0}}})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, hits[0].Score)
}

func TestBuckets_MarshalKeepsOrder(t *testing.T) {
	b := NewBuckets([]string{"zucchini", "apple"})
	b.results["apple"] = append(b.results["apple"], SearchResult{Title: "Pie", RecipeID: "p"})

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zucchini":[],"apple":[{"title":"Pie","similarity_score":0,"ingredients":null,"instructions":"","recipe_id":"p"}]}`, string(data))
	assert.Regexp(t, `^\{"zucchini".*"apple"`, string(data))
	assert.Equal(t, 1, b.Total())
}
