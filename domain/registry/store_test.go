package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Tatenda/fullstori/internal/testutil"
	"github.com/Tatenda/fullstori/pkg/apperror"
)

type StoreSuite struct {
	testutil.BaseSuite
	store *Store
}

func TestStore(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.BaseSuite.SetupTest()
	s.store = NewStore(s.DB())
}

func (s *StoreSuite) TestGetOrCreateRole_CreatesThenReuses() {
	role, created, err := s.store.GetOrCreateRole(s.Ctx, "  Detective ", CategoryLawEnforcement)
	s.Require().NoError(err)
	s.True(created)
	s.Equal("Detective", role.Name)
	s.False(role.IsSystem)

	again, created, err := s.store.GetOrCreateRole(s.Ctx, "Detective", CategorySuspect)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(role.ID, again.ID)
	s.Equal(CategoryLawEnforcement, again.Category, "existing category is never overwritten")
	s.Equal(1, s.Count("roles", ""))
}

func (s *StoreSuite) TestGetOrCreateRole_Validation() {
	_, _, err := s.store.GetOrCreateRole(s.Ctx, "   ", CategoryCivilian)
	s.ErrorIs(err, apperror.ErrValidation)

	_, _, err = s.store.GetOrCreateRole(s.Ctx, "Mayor", RoleCategory("wizard"))
	s.ErrorIs(err, apperror.ErrValidation)

	role, _, err := s.store.GetOrCreateRole(s.Ctx, "Neighbour", "")
	s.Require().NoError(err)
	s.Equal(CategoryCivilian, role.Category)

	s.Equal(1, s.Count("roles", ""))
}

func (s *StoreSuite) TestGetOrCreateRelationshipType_DefaultCategory() {
	rt, created, err := s.store.GetOrCreateRelationshipType(s.Ctx, "Knows", "")
	s.Require().NoError(err)
	s.True(created)
	s.Equal(DefaultRelationshipCategory, rt.Category)

	got, err := s.store.GetRelationshipType(s.Ctx, rt.ID)
	s.Require().NoError(err)
	s.Equal("Knows", got.Name)

	missing, err := s.store.GetRelationshipType(s.Ctx, "nope")
	s.Require().NoError(err)
	s.Nil(missing)

	m, err := s.store.GetRelationshipTypes(s.Ctx, []string{rt.ID, "nope"})
	s.Require().NoError(err)
	s.Len(m, 1)
}

func (s *StoreSuite) TestGetOrCreateEventType_ConcurrentCallersAgree() {
	const callers = 8
	ids := make([]string, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			et, _, err := s.store.GetOrCreateEventType(s.Ctx, "Stakeout")
			if err == nil {
				ids[i] = et.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		s.Equal(ids[0], id)
	}
	s.NotEmpty(ids[0])
	s.Equal(1, s.Count("event_types", "name = ?", "Stakeout"))
}

func (s *StoreSuite) TestSeed_IsIdempotent() {
	v, err := DefaultVocabulary()
	s.Require().NoError(err)

	first, err := Seed(s.Ctx, s.DB(), v)
	s.Require().NoError(err)
	s.Positive(first.Roles)
	s.Positive(first.Relationships)
	s.Positive(first.EventTypes)
	s.Equal(first.Roles, s.Count("roles", "is_system = ?", true))

	second, err := Seed(s.Ctx, s.DB(), v)
	s.Require().NoError(err)
	s.Zero(second.Total())

	root, _, err := s.store.GetOrCreateRole(s.Ctx, "Root", CategoryCivilian)
	s.Require().NoError(err)
	s.Equal(CategoryOfficial, root.Category)
	s.True(root.IsSystem)
}
