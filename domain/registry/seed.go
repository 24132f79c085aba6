package registry

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// Vocabulary is the seed document: roles and relationships keyed by category.
type Vocabulary struct {
	Roles         map[RoleCategory][]string `yaml:"roles"`
	Relationships map[string][]string       `yaml:"relationships"`
	EventTypes    []string                  `yaml:"eventTypes"`
}

// SeedResult counts the rows inserted by Seed.
type SeedResult struct {
	Roles         int `json:"roles"`
	Relationships int `json:"relationships"`
	EventTypes    int `json:"eventTypes"`
}

// Total returns the number of inserted rows.
func (r SeedResult) Total() int {
	return r.Roles + r.Relationships + r.EventTypes
}

// DefaultVocabulary parses the embedded seed document.
func DefaultVocabulary() (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(seedYAML, &v); err != nil {
		return nil, fmt.Errorf("parse seed vocabulary: %w", err)
	}
	for cat := range v.Roles {
		if !cat.Valid() {
			return nil, fmt.Errorf("seed vocabulary: unknown role category %q", cat)
		}
	}
	return &v, nil
}

// Seed inserts missing system vocabulary in one transaction. Existing names are
// left untouched, so running it repeatedly is safe.
func Seed(ctx context.Context, db bun.IDB, v *Vocabulary) (SeedResult, error) {
	var res SeedResult

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for cat, names := range v.Roles {
			for _, name := range names {
				n, err := insertSystem(ctx, tx, &Role{ID: uuid.NewString(), Name: name, Category: cat, IsSystem: true, CreatedAt: now()})
				if err != nil {
					return fmt.Errorf("seed role %q: %w", name, err)
				}
				res.Roles += n
			}
		}
		for cat, names := range v.Relationships {
			for _, name := range names {
				n, err := insertSystem(ctx, tx, &RelationshipType{ID: uuid.NewString(), Name: name, Category: cat, IsSystem: true, CreatedAt: now()})
				if err != nil {
					return fmt.Errorf("seed relationship %q: %w", name, err)
				}
				res.Relationships += n
			}
		}
		for _, name := range v.EventTypes {
			n, err := insertSystem(ctx, tx, &EventType{ID: uuid.NewString(), Name: name, IsSystem: true, CreatedAt: now()})
			if err != nil {
				return fmt.Errorf("seed event type %q: %w", name, err)
			}
			res.EventTypes += n
		}
		return nil
	})

	return res, err
}

func insertSystem(ctx context.Context, db bun.IDB, model any) (int, error) {
	r, err := db.NewInsert().Model(model).On("CONFLICT (name) DO NOTHING").Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, _ := r.RowsAffected()
	return int(n), nil
}
