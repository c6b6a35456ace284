package schemas

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
)

func newTestLoader(t *testing.T, baseDir string) *FSLoader {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		JSONFormat:    true,
		DefaultLevel:  slog.LevelError,
		ChannelLevels: make(map[logging.Channel]slog.Level),
	})
	require.NoError(t, err)
	return &FSLoader{baseDir: baseDir, logger: logger}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestLoadSchemas_DefaultTenantReadsRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "posts.json"),
		`{"id":"posts","name":"Posts","path":"/blog/posts/","fields":[{"name":"title","type":"text"}]}`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a schema")

	loader := newTestLoader(t, dir)
	schemas, err := loader.LoadSchemas(context.Background(), "default")
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	assert.Equal(t, "posts", schemas[0].ID)
	assert.Equal(t, "/blog/posts", schemas[0].Path, "path cleaned on load")
	assert.Equal(t, "default", schemas[0].TenantID)
	assert.Len(t, schemas[0].Fields, 1)
}

func TestLoadSchemas_SkipsBrokenAndIncompleteFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.json"), `{"id":"good","name":"Good","path":"/good"}`)
	writeFile(t, filepath.Join(dir, "broken.json"), `{not json`)
	writeFile(t, filepath.Join(dir, "anonymous.json"), `{"path":"/x"}`)

	loader := newTestLoader(t, dir)
	schemas, err := loader.LoadSchemas(context.Background(), "default")
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "good", schemas[0].ID)
}

func TestLoadSchemas_DefaultsPathToName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pages.json"), `{"id":"pages","name":"Pages"}`)

	loader := newTestLoader(t, dir)
	schemas, err := loader.LoadSchemas(context.Background(), "default")
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "/Pages", schemas[0].Path)
}

func TestLoadSchemas_TenantScopedSubdirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "root.json"), `{"id":"root","name":"Root","path":"/root"}`)
	writeFile(t, filepath.Join(dir, "acme", "widgets.json"), `{"id":"widgets","name":"Widgets","path":"/widgets"}`)

	loader := newTestLoader(t, dir)
	schemas, err := loader.LoadSchemas(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "widgets", schemas[0].ID)
	assert.Equal(t, "acme", schemas[0].TenantID)
}

func TestLoadSchemas_MissingDirectoryIsEmpty(t *testing.T) {
	loader := newTestLoader(t, filepath.Join(t.TempDir(), "nope"))
	schemas, err := loader.LoadSchemas(context.Background(), "default")
	require.NoError(t, err)
	assert.Empty(t, schemas)
}
