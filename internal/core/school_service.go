package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchoolService manages schools, their uniform catalogue and enrolled students.
type SchoolService interface {
	ListSchools(ctx context.Context) ([]School, error)
	GetSchool(ctx context.Context, id string) (*School, error)
	CreateSchool(ctx context.Context, name string) (*School, error)

	ListUniforms(ctx context.Context, schoolID string) ([]Uniform, error)
	CreateUniform(ctx context.Context, u Uniform) (*Uniform, error)

	ListStudents(ctx context.Context, schoolID string) ([]Student, error)
	GetStudent(ctx context.Context, id string) (*Student, error)
	// EnrollStudent creates a student with an empty uniform log.
	EnrollStudent(ctx context.Context, s Student) (*Student, error)
}

type schoolService struct {
	store Store
}

// NewSchoolService constructs a SchoolService over store.
func NewSchoolService(store Store) SchoolService {
	return &schoolService{store: store}
}

func (s *schoolService) ListSchools(ctx context.Context) ([]School, error) {
	return s.store.ListSchools(ctx)
}

func (s *schoolService) GetSchool(ctx context.Context, id string) (*School, error) {
	return s.store.GetSchool(ctx, id)
}

func (s *schoolService) CreateSchool(ctx context.Context, name string) (*School, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("name", "is required")
	}
	return s.store.CreateSchool(ctx, School{
		ID:            uuid.NewString(),
		Name:          name,
		Status:        "active",
		UniformPolicy: []Policy{},
		CreatedAt:     time.Now().UTC(),
	})
}

func (s *schoolService) ListUniforms(ctx context.Context, schoolID string) ([]Uniform, error) {
	if _, err := s.store.GetSchool(ctx, schoolID); err != nil {
		return nil, err
	}
	return s.store.ListUniforms(ctx, schoolID)
}

func (s *schoolService) CreateUniform(ctx context.Context, u Uniform) (*Uniform, error) {
	if strings.TrimSpace(u.Name) == "" {
		return nil, Invalid("name", "is required")
	}
	if strings.TrimSpace(u.Type) == "" {
		return nil, Invalid("type", "is required")
	}
	if _, err := s.store.GetSchool(ctx, u.SchoolID); err != nil {
		return nil, err
	}
	u.ID = uuid.NewString()
	return s.store.CreateUniform(ctx, u)
}

func (s *schoolService) ListStudents(ctx context.Context, schoolID string) ([]Student, error) {
	if _, err := s.store.GetSchool(ctx, schoolID); err != nil {
		return nil, err
	}
	return s.store.ListStudentsBySchool(ctx, schoolID)
}

func (s *schoolService) GetStudent(ctx context.Context, id string) (*Student, error) {
	return s.store.GetStudent(ctx, id)
}

func (s *schoolService) EnrollStudent(ctx context.Context, st Student) (*Student, error) {
	if strings.TrimSpace(st.Name) == "" {
		return nil, Invalid("name", "is required")
	}
	if st.Level != LevelJunior && st.Level != LevelSenior {
		return nil, Invalid("level", "must be Junior or Senior")
	}
	if st.Gender != GenderBoys && st.Gender != GenderGirls {
		return nil, Invalid("gender", "must be Boys or Girls")
	}
	if _, err := s.store.GetSchool(ctx, st.SchoolID); err != nil {
		return nil, err
	}
	st.ID = uuid.NewString()
	st.UniformLog = []LogEntry{}
	st.CreatedAt = time.Now().UTC()
	return s.store.CreateStudent(ctx, st)
}
