package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/avalia-edu/diagnostic-service/internal/cache"
	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/avalia-edu/diagnostic-service/internal/repositories"
)

// MockResponseRepository is a mock implementation of ResponseRepository
type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) GetByStudentAndAssessment(ctx context.Context, studentID, assessmentID uint) ([]models.Response, error) {
	args := m.Called(ctx, studentID, assessmentID)
	return args.Get(0).([]models.Response), args.Error(1)
}

func (m *MockResponseRepository) GetByStudent(ctx context.Context, studentID uint) ([]models.Response, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).([]models.Response), args.Error(1)
}

func (m *MockResponseRepository) GetByClass(ctx context.Context, classID uint) ([]models.Response, error) {
	args := m.Called(ctx, classID)
	return args.Get(0).([]models.Response), args.Error(1)
}

func (m *MockResponseRepository) Upsert(ctx context.Context, responses []models.Response) error {
	args := m.Called(ctx, responses)
	return args.Error(0)
}

func (m *MockResponseRepository) CountByAssessments(ctx context.Context, classID uint, assessmentIDs []uint) (map[uint]int64, error) {
	args := m.Called(ctx, classID, assessmentIDs)
	return args.Get(0).(map[uint]int64), args.Error(1)
}

// MockAssessmentRepository is a mock implementation of AssessmentRepository
type MockAssessmentRepository struct {
	mock.Mock
}

func (m *MockAssessmentRepository) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Assessment), args.Error(1)
}

func (m *MockAssessmentRepository) GetByCode(ctx context.Context, code string) (*models.Assessment, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(*models.Assessment), args.Error(1)
}

func (m *MockAssessmentRepository) ListByGrade(ctx context.Context, gradeLevel string) ([]models.Assessment, error) {
	args := m.Called(ctx, gradeLevel)
	return args.Get(0).([]models.Assessment), args.Error(1)
}

// MockStudentRepository is a mock implementation of StudentRepository
type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) GetByID(ctx context.Context, id uint) (*models.Student, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Student), args.Error(1)
}

func (m *MockStudentRepository) GetByEnrollmentCode(ctx context.Context, code string) (*models.Student, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(*models.Student), args.Error(1)
}

func (m *MockStudentRepository) ListByClass(ctx context.Context, classID uint) ([]models.Student, error) {
	args := m.Called(ctx, classID)
	return args.Get(0).([]models.Student), args.Error(1)
}

func (m *MockStudentRepository) GetClass(ctx context.Context, classID uint) (*models.SchoolClass, error) {
	args := m.Called(ctx, classID)
	return args.Get(0).(*models.SchoolClass), args.Error(1)
}

// MockRepository bundles the repository mocks behind the aggregate
// interface.
type MockRepository struct {
	ResponseRepo   *MockResponseRepository
	AssessmentRepo *MockAssessmentRepository
	StudentRepo    *MockStudentRepository
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		ResponseRepo:   new(MockResponseRepository),
		AssessmentRepo: new(MockAssessmentRepository),
		StudentRepo:    new(MockStudentRepository),
	}
}

func (m *MockRepository) Response() repositories.ResponseRepository {
	return m.ResponseRepo
}

func (m *MockRepository) Assessment() repositories.AssessmentRepository {
	return m.AssessmentRepo
}

func (m *MockRepository) Student() repositories.StudentRepository {
	return m.StudentRepo
}

// memoryCache is an in-memory CacheService used to exercise the
// read-through path without Redis.
type memoryCache struct {
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := c.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	// Only the overview prefix is used in these tests.
	c.entries = make(map[string][]byte)
	return nil
}
