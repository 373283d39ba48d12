package mock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jon4hz/gradebook/internal/database"
	"gorm.io/gorm"
)

var _ database.DB = (*MockDB)(nil)

// MockDB is an in-memory implementation of database.DB for testing.
type MockDB struct {
	mu sync.RWMutex

	users      map[uint]*database.User
	nextUserID uint

	courses      map[uint]*database.Course
	nextCourseID uint

	assessments      map[uint]*database.Assessment
	nextAssessmentID uint

	// Error simulation
	CreateUserError               error
	GetUserByIDError              error
	GetUserByUsernameError        error
	GetUserByEmailError           error
	GetAllUsersError              error
	UpdateUserPasswordError       error
	DeleteUserError               error
	CreateCourseError             error
	GetCourseByIDError            error
	GetCoursesByUserIDError       error
	GetAllCoursesError            error
	UpdateCourseError             error
	DeleteCourseError             error
	CreateAssessmentError         error
	GetAssessmentByIDError        error
	GetAssessmentsByCourseIDError error
	UpdateAssessmentError         error
	DeleteAssessmentError         error
	GetStatsError                 error
	PingError                     error
}

// NewMockDB creates a new MockDB instance.
func NewMockDB() *MockDB {
	m := &MockDB{}
	m.Reset()
	return m
}

// Reset clears all data and errors from the mock database.
func (m *MockDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[uint]*database.User)
	m.nextUserID = 1
	m.courses = make(map[uint]*database.Course)
	m.nextCourseID = 1
	m.assessments = make(map[uint]*database.Assessment)
	m.nextAssessmentID = 1

	m.CreateUserError = nil
	m.GetUserByIDError = nil
	m.GetUserByUsernameError = nil
	m.GetUserByEmailError = nil
	m.GetAllUsersError = nil
	m.UpdateUserPasswordError = nil
	m.DeleteUserError = nil
	m.CreateCourseError = nil
	m.GetCourseByIDError = nil
	m.GetCoursesByUserIDError = nil
	m.GetAllCoursesError = nil
	m.UpdateCourseError = nil
	m.DeleteCourseError = nil
	m.CreateAssessmentError = nil
	m.GetAssessmentByIDError = nil
	m.GetAssessmentsByCourseIDError = nil
	m.UpdateAssessmentError = nil
	m.DeleteAssessmentError = nil
	m.GetStatsError = nil
	m.PingError = nil
}

// User operations

func (m *MockDB) CreateUser(ctx context.Context, username, email, password string) (*database.User, error) {
	if m.CreateUserError != nil {
		return nil, m.CreateUserError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return nil, database.ErrUsernameTaken
		}
		if u.Email == email {
			return nil, database.ErrEmailTaken
		}
	}

	user := &database.User{
		ID:        m.nextUserID,
		Username:  username,
		Email:     email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	m.nextUserID++
	m.users[user.ID] = user

	u := *user
	return &u, nil
}

func (m *MockDB) GetUserByID(ctx context.Context, id uint) (*database.User, error) {
	if m.GetUserByIDError != nil {
		return nil, m.GetUserByIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	u := *user
	return &u, nil
}

func (m *MockDB) GetUserByUsername(ctx context.Context, username string) (*database.User, error) {
	if m.GetUserByUsernameError != nil {
		return nil, m.GetUserByUsernameError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Username == username {
			u := *user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockDB) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	if m.GetUserByEmailError != nil {
		return nil, m.GetUserByEmailError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Email == email {
			u := *user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockDB) GetAllUsers(ctx context.Context) ([]database.User, error) {
	if m.GetAllUsersError != nil {
		return nil, m.GetAllUsersError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]database.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, *user)
	}
	slices.SortFunc(users, func(a, b database.User) int { return int(a.ID) - int(b.ID) })
	return users, nil
}

func (m *MockDB) UpdateUserPassword(ctx context.Context, id uint, password string) error {
	if m.UpdateUserPasswordError != nil {
		return m.UpdateUserPasswordError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	return user.SetPassword(password)
}

func (m *MockDB) DeleteUser(ctx context.Context, id uint) error {
	if m.DeleteUserError != nil {
		return m.DeleteUserError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for courseID, course := range m.courses {
		if course.UserID == id {
			m.deleteCourseLocked(courseID)
		}
	}
	delete(m.users, id)
	return nil
}

// Course operations

func (m *MockDB) CreateCourse(ctx context.Context, course *database.Course) error {
	if m.CreateCourseError != nil {
		return m.CreateCourseError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[course.UserID]; !ok {
		return gorm.ErrForeignKeyViolated
	}

	course.ID = m.nextCourseID
	m.nextCourseID++
	if course.Timestamp.IsZero() {
		course.Timestamp = time.Now().UTC()
	}
	c := *course
	c.Assessments = nil
	m.courses[c.ID] = &c
	return nil
}

func (m *MockDB) GetCourseByID(ctx context.Context, id uint) (*database.Course, error) {
	if m.GetCourseByIDError != nil {
		return nil, m.GetCourseByIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	course, ok := m.courses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *course
	c.Assessments = m.assessmentsOfLocked(id)
	return &c, nil
}

func (m *MockDB) GetCoursesByUserID(ctx context.Context, userID uint) ([]database.Course, error) {
	if m.GetCoursesByUserIDError != nil {
		return nil, m.GetCoursesByUserIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	courses := make([]database.Course, 0)
	for _, course := range m.courses {
		if course.UserID == userID {
			courses = append(courses, *course)
		}
	}
	slices.SortFunc(courses, func(a, b database.Course) int { return b.Timestamp.Compare(a.Timestamp) })
	return courses, nil
}

func (m *MockDB) GetAllCourses(ctx context.Context) ([]database.Course, error) {
	if m.GetAllCoursesError != nil {
		return nil, m.GetAllCoursesError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	courses := make([]database.Course, 0, len(m.courses))
	for id, course := range m.courses {
		c := *course
		c.Assessments = m.assessmentsOfLocked(id)
		if user, ok := m.users[c.UserID]; ok {
			u := *user
			c.Student = &u
		}
		courses = append(courses, c)
	}
	slices.SortFunc(courses, func(a, b database.Course) int { return int(a.ID) - int(b.ID) })
	return courses, nil
}

func (m *MockDB) UpdateCourse(ctx context.Context, course *database.Course) error {
	if m.UpdateCourseError != nil {
		return m.UpdateCourseError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.courses[course.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.Name = course.Name
	existing.AssessmentNumber = course.AssessmentNumber
	existing.ClassWeight = course.ClassWeight
	existing.ExamWeight = course.ExamWeight
	existing.UpdatedAt = time.Now()
	return nil
}

func (m *MockDB) DeleteCourse(ctx context.Context, id uint) error {
	if m.DeleteCourseError != nil {
		return m.DeleteCourseError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.courses[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.deleteCourseLocked(id)
	return nil
}

// Assessment operations

func (m *MockDB) CreateAssessment(ctx context.Context, assessment *database.Assessment) error {
	if m.CreateAssessmentError != nil {
		return m.CreateAssessmentError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.courses[assessment.CourseID]; !ok {
		return gorm.ErrRecordNotFound
	}

	assessment.ID = m.nextAssessmentID
	m.nextAssessmentID++
	a := *assessment
	a.Course = nil
	m.assessments[a.ID] = &a
	return nil
}

func (m *MockDB) GetAssessmentByID(ctx context.Context, id uint) (*database.Assessment, error) {
	if m.GetAssessmentByIDError != nil {
		return nil, m.GetAssessmentByIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	assessment, ok := m.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	a := *assessment
	if course, ok := m.courses[a.CourseID]; ok {
		c := *course
		a.Course = &c
	}
	return &a, nil
}

func (m *MockDB) GetAssessmentsByCourseID(ctx context.Context, courseID uint) ([]database.Assessment, error) {
	if m.GetAssessmentsByCourseIDError != nil {
		return nil, m.GetAssessmentsByCourseIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.assessmentsOfLocked(courseID), nil
}

func (m *MockDB) UpdateAssessment(ctx context.Context, assessment *database.Assessment) error {
	if m.UpdateAssessmentError != nil {
		return m.UpdateAssessmentError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.assessments[assessment.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.Name = assessment.Name
	existing.Weight = assessment.Weight
	existing.Mark = assessment.Mark
	existing.UpdatedAt = time.Now()
	return nil
}

func (m *MockDB) DeleteAssessment(ctx context.Context, id uint) error {
	if m.DeleteAssessmentError != nil {
		return m.DeleteAssessmentError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assessments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assessments, id)
	return nil
}

// Utility

func (m *MockDB) GetStats(ctx context.Context) (*database.Stats, error) {
	if m.GetStatsError != nil {
		return nil, m.GetStatsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &database.Stats{
		TotalUsers:       int64(len(m.users)),
		TotalCourses:     int64(len(m.courses)),
		TotalAssessments: int64(len(m.assessments)),
	}
	for _, course := range m.courses {
		if stats.LatestCourseAt == nil || course.Timestamp.After(*stats.LatestCourseAt) {
			ts := course.Timestamp
			stats.LatestCourseAt = &ts
		}
	}
	if stats.TotalCourses > 0 {
		stats.AverageAssessmentsPerCourse = float64(stats.TotalAssessments) / float64(stats.TotalCourses)
	}
	return stats, nil
}

func (m *MockDB) Ping(ctx context.Context) error {
	return m.PingError
}

func (m *MockDB) Close() error {
	return nil
}

// Helper methods, the caller must hold the lock.

func (m *MockDB) assessmentsOfLocked(courseID uint) []database.Assessment {
	assessments := make([]database.Assessment, 0)
	for _, a := range m.assessments {
		if a.CourseID == courseID {
			assessments = append(assessments, *a)
		}
	}
	slices.SortFunc(assessments, func(a, b database.Assessment) int { return int(a.ID) - int(b.ID) })
	return assessments
}

func (m *MockDB) deleteCourseLocked(courseID uint) {
	for id, a := range m.assessments {
		if a.CourseID == courseID {
			delete(m.assessments, id)
		}
	}
	delete(m.courses, courseID)
}
