package entities

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Tatenda/fullstori/domain/registry"
	"github.com/Tatenda/fullstori/internal/config"
	"github.com/Tatenda/fullstori/internal/storage"
	"github.com/Tatenda/fullstori/pkg/apperror"
	"github.com/Tatenda/fullstori/pkg/logger"
	"github.com/Tatenda/fullstori/pkg/mathutil"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

var (
	ErrAvatarTooLarge       = apperror.New(http.StatusRequestEntityTooLarge, "payload_too_large", "Avatar image is too large")
	ErrAvatarStorageMissing = apperror.New(http.StatusServiceUnavailable, "storage_unavailable", "Avatar storage is not configured")
)

// AvatarStorage stores uploaded avatar images.
type AvatarStorage interface {
	Enabled() bool
	MaxAvatarBytes() int64
	UploadAvatar(ctx context.Context, entityID string, data io.Reader, size int64, contentType string) (*storage.UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// Service implements entity business logic
type Service struct {
	db            bun.IDB
	store         *Store
	roles         *registry.Store
	avatars       AvatarStorage
	avatarBaseURL string
	log           *slog.Logger
}

// NewService creates a new entities service
func NewService(db bun.IDB, store *Store, roles *registry.Store, avatars AvatarStorage, cfg *config.Config, log *slog.Logger) *Service {
	return &Service{
		db:            db,
		store:         store,
		roles:         roles,
		avatars:       avatars,
		avatarBaseURL: cfg.Graph.AvatarBaseURL,
		log:           log.With(logger.Scope("entities.svc")),
	}
}

// Create validates and stores a new entity.
func (s *Service) Create(ctx context.Context, req CreateEntityRequest) (*Entity, error) {
	e, err := s.create(ctx, s.db, req)
	if err != nil {
		return nil, apperror.Classify(err)
	}
	s.log.Info("entity created", slog.String("id", e.ID), slog.String("name", e.Name))
	return e, nil
}

func (s *Service) create(ctx context.Context, db bun.IDB, req CreateEntityRequest) (*Entity, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.NewValidation("name", "entity name is required")
	}

	entityType, err := parseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}

	role, err := s.roles.Tx(db).GetRole(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, apperror.NewValidation("roleId", fmt.Sprintf("role '%s' does not exist", req.RoleID))
	}

	ts := time.Now().UTC()
	e := &Entity{
		ID:          uuid.NewString(),
		Name:        name,
		RoleID:      role.ID,
		Role:        role,
		EntityType:  entityType,
		Description: req.Description,
		Avatar:      strPtr(s.generatedAvatar(name)),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := s.store.Tx(db).Insert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// FindOrCreateByExactName returns the entity whose trimmed name matches
// case-insensitively, creating it from candidate when none exists. An existing
// entity keeps its role and type. db may be a transaction.
func (s *Service) FindOrCreateByExactName(ctx context.Context, db bun.IDB, candidate CreateEntityRequest) (*Entity, bool, error) {
	if strings.TrimSpace(candidate.Name) == "" {
		return nil, false, apperror.NewValidation("name", "entity name is required")
	}

	existing, err := s.store.Tx(db).FindByExactName(ctx, candidate.Name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	e, err := s.create(ctx, db, candidate)
	if err != nil {
		return nil, false, err
	}
	s.log.Info("entity created from name",
		slog.String("id", e.ID),
		slog.String("name", e.Name),
	)
	return e, true, nil
}

// Update applies the supplied fields.
func (s *Service) Update(ctx context.Context, id string, req UpdateEntityRequest) (*Entity, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, apperror.Classify(err)
	}
	if e == nil {
		return nil, apperror.NewNotFound("entity", id)
	}

	columns := []string{"updated_at"}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.NewValidation("name", "entity name cannot be empty")
		}
		e.Name = name
		columns = append(columns, "name")
		if !e.HasCustomAvatar() {
			e.Avatar = strPtr(s.generatedAvatar(name))
			columns = append(columns, "avatar")
		}
	}

	if req.RoleID != nil {
		role, err := s.roles.GetRole(ctx, *req.RoleID)
		if err != nil {
			return nil, apperror.Classify(err)
		}
		if role == nil {
			return nil, apperror.NewValidation("roleId", fmt.Sprintf("role '%s' does not exist", *req.RoleID))
		}
		e.RoleID = role.ID
		e.Role = role
		columns = append(columns, "role_id")
	}

	if req.EntityType != nil {
		t, err := parseEntityType(*req.EntityType)
		if err != nil {
			return nil, err
		}
		e.EntityType = t
		columns = append(columns, "entity_type")
	}

	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			e.Description = nil
		} else {
			e.Description = req.Description
		}
		columns = append(columns, "description")
	}

	e.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, e, columns...); err != nil {
		return nil, apperror.Classify(err)
	}
	return e, nil
}

// Get returns an entity or NotFound.
func (s *Service) Get(ctx context.Context, id string) (*Entity, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, apperror.Classify(err)
	}
	if e == nil {
		return nil, apperror.NewNotFound("entity", id)
	}
	return e, nil
}

// GetMany loads entities keyed by id for hydration. db may be a transaction.
func (s *Service) GetMany(ctx context.Context, db bun.IDB, ids []string) (map[string]*Entity, error) {
	return s.store.Tx(db).GetMany(ctx, ids)
}

// Search finds entities by name substring, annotating graph membership when a graph is given.
func (s *Service) Search(ctx context.Context, params SearchParams) ([]SearchResult, error) {
	limit := mathutil.ClampLimit(params.Limit, defaultSearchLimit, maxSearchLimit)

	rows, err := s.store.Search(ctx, params.Query, limit)
	if err != nil {
		return nil, apperror.Classify(err)
	}

	var placed map[string]string
	if params.GraphID != "" && len(rows) > 0 {
		ids := make([]string, len(rows))
		for i, e := range rows {
			ids[i] = e.ID
		}
		placed, err = s.store.NodeIDsInGraph(ctx, params.GraphID, ids)
		if err != nil {
			return nil, apperror.Classify(err)
		}
	}

	results := make([]SearchResult, len(rows))
	for i, e := range rows {
		results[i] = SearchResult{Entity: e}
		if nodeID, ok := placed[e.ID]; ok {
			results[i].NodeID = strPtr(nodeID)
			results[i].InGraph = true
		}
	}
	return results, nil
}

// UploadAvatar replaces the entity avatar with an uploaded image.
func (s *Service) UploadAvatar(ctx context.Context, id string, data io.Reader, size int64, contentType string) (*Entity, error) {
	if s.avatars == nil || !s.avatars.Enabled() {
		return nil, ErrAvatarStorageMissing
	}
	if limit := s.avatars.MaxAvatarBytes(); limit > 0 && size > limit {
		return nil, ErrAvatarTooLarge.WithDetails(map[string]any{"maxBytes": limit})
	}
	if _, ok := storage.ExtensionFor(contentType); !ok {
		return nil, apperror.NewValidation("file", "avatar must be a PNG, JPEG, GIF or WebP image")
	}

	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.avatars.UploadAvatar(ctx, e.ID, data, size, contentType)
	if err != nil {
		return nil, apperror.ErrInternal.WithMessage("failed to store avatar").WithInternal(err)
	}

	previous := e.AvatarKey
	e.Avatar = strPtr(res.URL)
	e.AvatarKey = strPtr(res.Key)
	e.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, e, "avatar", "avatar_key", "updated_at"); err != nil {
		return nil, apperror.Classify(err)
	}

	if previous != nil && *previous != "" && *previous != res.Key {
		if err := s.avatars.Delete(ctx, *previous); err != nil {
			s.log.Warn("failed to delete previous avatar",
				slog.String("key", *previous),
				logger.Error(err),
			)
		}
	}

	s.log.Info("avatar uploaded", slog.String("entity_id", e.ID), slog.String("key", res.Key))
	return e, nil
}

// ListOrphans returns entities not placed in any graph.
func (s *Service) ListOrphans(ctx context.Context, limit int) ([]*Entity, error) {
	return s.store.ListOrphans(ctx, limit)
}

func (s *Service) generatedAvatar(name string) string {
	return GeneratedAvatarURL(s.avatarBaseURL, name)
}

// GeneratedAvatarURL derives the default avatar image URL for a name.
func GeneratedAvatarURL(base, name string) string {
	return base + "?name=" + url.QueryEscape(name) + "&background=random"
}

func parseEntityType(raw string) (EntityType, error) {
	if raw == "" {
		return TypeHuman, nil
	}
	t := EntityType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", apperror.NewValidation("entityType", fmt.Sprintf("unknown entity type '%s'", raw))
	}
	return t, nil
}

func strPtr(s string) *string {
	return &s
}
