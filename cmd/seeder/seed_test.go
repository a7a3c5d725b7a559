package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedData_DevFile(t *testing.T) {
	data, err := loadSeedData([]string{"testdata/dev.yaml"})
	require.NoError(t, err)

	assert.Len(t, data.Categories, 2)
	assert.Len(t, data.Products, 4)
	assert.Len(t, data.Users, 4)
	assert.True(t, data.Products[3].Inactive)
	assert.NoError(t, validateSeedData(data))
}

func TestValidateSeedData(t *testing.T) {
	tests := []struct {
		name string
		data SeedData
	}{
		{"unknown category", SeedData{Products: []Product{{Name: "Mug", Slug: "mug", Category: "nope"}}}},
		{"negative stock", SeedData{Products: []Product{{Name: "Mug", Slug: "mug", Stock: -1}}}},
		{"owner with role", SeedData{Users: []User{{Email: "a@b.c", Password: "12345678", Owner: true, Role: "staff"}}}},
		{"missing role", SeedData{Users: []User{{Email: "a@b.c", Password: "12345678"}}}},
		{"short password", SeedData{Users: []User{{Email: "a@b.c", Password: "short", Role: "customer"}}}},
		{"two owners", SeedData{Users: []User{
			{Email: "a@b.c", Password: "12345678", Owner: true},
			{Email: "d@e.f", Password: "12345678", Owner: true},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, validateSeedData(&tt.data))
		})
	}
}

func TestResolveFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	files, err := resolveFiles("", dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = resolveFiles("", "")
	assert.Error(t, err)
	_, err = resolveFiles("x.yaml", dir)
	assert.Error(t, err)
}
