package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/internal/testutil"
)

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		ext         string
		ok          bool
	}{
		{"image/png", ".png", true},
		{"image/jpeg", ".jpg", true},
		{"IMAGE/JPEG", ".jpg", true},
		{"image/webp; charset=binary", ".webp", true},
		{"image/gif", ".gif", true},
		{"image/svg+xml", "", false},
		{"application/pdf", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			ext, ok := ExtensionFor(tt.contentType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestAvatarKey(t *testing.T) {
	key, err := AvatarKey("ent-1", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "entities/ent-1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	other, err := AvatarKey("ent-1", "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, key, other, "keys are unique per upload")

	_, err = AvatarKey("ent-1", "text/plain")
	assert.Error(t, err)
}

func TestObjectURL(t *testing.T) {
	t.Run("endpoint and bucket", func(t *testing.T) {
		cfg := config.StorageConfig{Endpoint: "http://minio:9000/", Bucket: "avatars"}
		assert.Equal(t, "http://minio:9000/avatars/entities/a/b.png", ObjectURL(cfg, "entities/a/b.png"))
	})

	t.Run("public url wins", func(t *testing.T) {
		cfg := config.StorageConfig{
			Endpoint:  "http://minio:9000",
			Bucket:    "avatars",
			PublicURL: "https://cdn.example.com/avatars/",
		}
		assert.Equal(t, "https://cdn.example.com/avatars/k.jpg", ObjectURL(cfg, "k.jpg"))
	})
}

func TestDisabledService(t *testing.T) {
	svc, err := NewService(&config.Config{}, testutil.Logger())
	require.NoError(t, err)
	assert.False(t, svc.Enabled())

	ctx := context.Background()
	_, err = svc.UploadAvatar(ctx, "e", strings.NewReader("x"), 1, "image/png")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, svc.Delete(ctx, "k"), ErrDisabled)
	_, err = svc.Exists(ctx, "k")
	assert.ErrorIs(t, err, ErrDisabled)
}
