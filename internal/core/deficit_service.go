package core

import (
	"context"
	"fmt"
)

// SchoolSummary is the headline of one school's deficit report.
type SchoolSummary struct {
	SchoolID             string `json:"schoolId"`
	SchoolName           string `json:"schoolName"`
	TotalStudents        int    `json:"totalStudents"`
	StudentsWithDeficits int    `json:"studentsWithDeficits"`
	TotalDeficit         int    `json:"totalDeficit"`
	OpenSizeRequests     int    `json:"openSizeRequests"`
}

// DeficitService computes deficit reports. Reports are always rebuilt from a fresh
// read of the store; nothing is cached between calls.
type DeficitService interface {
	StudentDeficit(ctx context.Context, studentID string) (*StudentDeficit, error)
	SchoolReport(ctx context.Context, schoolID string) (*SchoolDeficitReport, error)
	SchoolSummaries(ctx context.Context) ([]SchoolSummary, error)
}

type deficitService struct {
	store Store
}

// NewDeficitService constructs a DeficitService over store.
func NewDeficitService(store Store) DeficitService {
	return &deficitService{store: store}
}

func (s *deficitService) StudentDeficit(ctx context.Context, studentID string) (*StudentDeficit, error) {
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	school, err := s.store.GetSchool(ctx, student.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to load school of student %s: %w", studentID, err)
	}
	d := ComputeStudentDeficit(*student, school.UniformPolicy)
	return &d, nil
}

func (s *deficitService) SchoolReport(ctx context.Context, schoolID string) (*SchoolDeficitReport, error) {
	school, err := s.store.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return s.report(ctx, school)
}

func (s *deficitService) SchoolSummaries(ctx context.Context) ([]SchoolSummary, error) {
	schools, err := s.store.ListSchools(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]SchoolSummary, 0, len(schools))
	for i := range schools {
		report, err := s.report(ctx, &schools[i])
		if err != nil {
			return nil, err
		}
		sum := SchoolSummary{
			SchoolID:             schools[i].ID,
			SchoolName:           schools[i].Name,
			TotalStudents:        report.TotalStudents,
			StudentsWithDeficits: report.StudentsWithDeficits,
		}
		for _, d := range report.UniformDeficits {
			sum.TotalDeficit += d.TotalDeficit
		}
		for _, r := range report.SizeRequests {
			sum.OpenSizeRequests += len(r.Students)
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

func (s *deficitService) report(ctx context.Context, school *School) (*SchoolDeficitReport, error) {
	students, err := s.store.ListStudentsBySchool(ctx, school.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students of school %s: %w", school.ID, err)
	}
	r := ComputeSchoolDeficitReport(students, school.UniformPolicy)
	r.SchoolID = school.ID
	return &r, nil
}
