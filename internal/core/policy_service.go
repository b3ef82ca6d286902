package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PolicyService manages a school's embedded uniform policy list.
// Every write is conditional on the school version read at the start of the call,
// so two staff devices editing the same list cannot silently overwrite each other.
type PolicyService interface {
	ListPolicies(ctx context.Context, schoolID string) ([]Policy, error)
	// AddPolicy validates p, checks the referenced uniform exists and fits the
	// policy's level and gender, assigns a new ID and appends it.
	AddPolicy(ctx context.Context, schoolID string, p Policy) (*School, error)
	// RemovePolicy removes the policies matched by ref and returns how many went.
	RemovePolicy(ctx context.Context, schoolID string, ref PolicyRef) (*School, int, error)
}

type policyService struct {
	store  Store
	logger *logrus.Logger
}

// NewPolicyService constructs a PolicyService over store.
func NewPolicyService(store Store, logger *logrus.Logger) PolicyService {
	return &policyService{store: store, logger: logger}
}

func (s *policyService) ListPolicies(ctx context.Context, schoolID string) ([]Policy, error) {
	school, err := s.store.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if school.UniformPolicy == nil {
		return []Policy{}, nil
	}
	return school.UniformPolicy, nil
}

func (s *policyService) AddPolicy(ctx context.Context, schoolID string, p Policy) (*School, error) {
	if err := ValidatePolicy(p); err != nil {
		return nil, err
	}

	uniform, err := s.store.GetUniform(ctx, p.UniformID)
	if err != nil {
		return nil, err
	}
	if !UniformMatchesPolicy(*uniform, p.Level, p.Gender) {
		return nil, Invalid("uniformId", fmt.Sprintf("uniform %s is for %s %s", uniform.Name, uniform.Level, uniform.Gender))
	}
	if p.UniformName == "" {
		p.UniformName = uniform.Name
	}
	if p.UniformType == "" {
		p.UniformType = uniform.Type
	}
	p.ID = uuid.NewString()

	school, err := s.store.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	policies := make([]Policy, 0, len(school.UniformPolicy)+1)
	policies = append(policies, school.UniformPolicy...)
	policies = append(policies, p)

	updated, err := s.store.UpdatePolicyList(ctx, schoolID, school.Version, policies)
	if err != nil {
		return nil, fmt.Errorf("failed to add policy to school %s: %w", schoolID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"school_id": schoolID,
		"policy_id": p.ID,
		"uniform":   p.UniformID,
		"level":     p.Level,
		"gender":    p.Gender,
	}).Info("policy added")
	return updated, nil
}

func (s *policyService) RemovePolicy(ctx context.Context, schoolID string, ref PolicyRef) (*School, int, error) {
	if ref == nil {
		return nil, 0, Invalid("policy", "a policy id or uniformId/level/gender is required")
	}

	school, err := s.store.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, 0, err
	}

	remaining, removed := RemovePolicy(school.UniformPolicy, ref)
	if removed == 0 {
		return nil, 0, NotFound("policy", ref.String())
	}

	updated, err := s.store.UpdatePolicyList(ctx, schoolID, school.Version, remaining)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to remove policy from school %s: %w", schoolID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"school_id": schoolID,
		"ref":       ref.String(),
		"removed":   removed,
	}).Info("policy removed")
	return updated, removed, nil
}
