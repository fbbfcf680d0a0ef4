package main

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"codavert-workers/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_EveryRegistryActivity(t *testing.T) {
	reg := registry.MustDefault()
	require.NotEmpty(t, reg.Activities)

	for i := range reg.Activities {
		a := &reg.Activities[i]
		t.Run(a.ID, func(t *testing.T) {
			files, err := Generate(a)
			require.NoError(t, err)
			require.Len(t, files, 3)

			fset := token.NewFileSet()
			for name, src := range files {
				_, err := parser.ParseFile(fset, name, src, parser.AllErrors)
				assert.NoError(t, err, name)
			}
		})
	}
}

func TestGenerate_AllocateDocumentNumber(t *testing.T) {
	a, ok := registry.MustDefault().Lookup("document.number.allocate")
	require.True(t, ok)

	files, err := Generate(a)
	require.NoError(t, err)

	models := string(files["models.go"])
	assert.Contains(t, models, "package allocatedocumentnumber")
	assert.Contains(t, models, "DocumentKind    string        `json:\"documentKind\"`")
	assert.Contains(t, models, "OwnerID         int64         `json:\"ownerId\"`")
	assert.Contains(t, models, "ExistingNumbers []interface{} `json:\"existingNumbers\"`")
	assert.Contains(t, models, "DocumentNumber string `json:\"documentNumber\"`")

	assert.Contains(t, string(files["config.go"]), "Timeout:       15 * time.Second")
	assert.Contains(t, string(files["handler.go"]), `TaskType   = "document.number.allocate"`)
}

func TestGoFieldName(t *testing.T) {
	assert.Equal(t, "ApplicationID", goFieldName("applicationId"))
	assert.Equal(t, "ResumeURL", goFieldName("resumeUrl"))
	assert.Equal(t, "Status", goFieldName("status"))
	assert.Equal(t, "", goFieldName(""))
}

func TestCategoryDirectory(t *testing.T) {
	assert.Equal(t, "application", categoryDirectory("recruitment"))
	assert.Equal(t, "application", categoryDirectory("communication"))
	assert.Equal(t, "documents", categoryDirectory("documents"))
}

func TestWriteFiles_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	a := &registry.Activity{ID: "demo-worker", Category: "Documents"}
	files := map[string][]byte{"models.go": []byte("package demoworker\n")}

	workerDir, written, err := writeFiles(dir, a, files, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "documents", "demo-worker"), workerDir)
	assert.Len(t, written, 1)

	_, _, err = writeFiles(dir, a, files, false)
	assert.ErrorContains(t, err, "already exists")

	_, _, err = writeFiles(dir, a, map[string][]byte{"models.go": []byte("package x\n")}, true)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(workerDir, "models.go"))
	require.NoError(t, err)
	assert.Equal(t, "package x\n", string(got))
}
