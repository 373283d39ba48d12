package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jon4hz/gradebook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type DatabaseTestSuite struct {
	suite.Suite
	client *Client
	ctx    context.Context
}

func (s *DatabaseTestSuite) SetupSuite() {
	PasswordCost = bcrypt.MinCost
}

func (s *DatabaseTestSuite) TearDownSuite() {
	PasswordCost = bcrypt.DefaultCost
}

func (s *DatabaseTestSuite) SetupTest() {
	s.ctx = context.Background()
	client, err := New(&config.DatabaseConfig{
		Driver: config.DatabaseDriverSQLite,
		Path:   filepath.Join(s.T().TempDir(), "data", "gradebook.db"),
	})
	s.Require().NoError(err)
	s.client = client
}

func (s *DatabaseTestSuite) TearDownTest() {
	s.Require().NoError(s.client.Close())
}

func (s *DatabaseTestSuite) createUser(username string) *User {
	user, err := s.client.CreateUser(s.ctx, username, username+"@example.com", "secret-password")
	s.Require().NoError(err)
	return user
}

func (s *DatabaseTestSuite) createCourse(userID uint, name string) *Course {
	course := &Course{
		Name:             name,
		AssessmentNumber: 3,
		ClassWeight:      0.4,
		ExamWeight:       0.6,
		UserID:           userID,
	}
	s.Require().NoError(s.client.CreateCourse(s.ctx, course))
	return course
}

func (s *DatabaseTestSuite) TestTableNames() {
	migrator := s.client.db.Migrator()
	for _, table := range []string{"users", "courses", "assessments"} {
		s.True(migrator.HasTable(table), "missing table %s", table)
	}
	s.True(migrator.HasIndex(&User{}, "Username"))
	s.True(migrator.HasIndex(&User{}, "Email"))
	s.True(migrator.HasIndex(&Course{}, "UserID"))
	s.True(migrator.HasIndex(&Course{}, "Timestamp"))
	s.True(migrator.HasIndex(&Assessment{}, "CourseID"))
}

func (s *DatabaseTestSuite) TestCreateUser() {
	user := s.createUser("alice")

	s.NotZero(user.ID)
	s.Equal("alice", user.Username)
	s.Equal("alice@example.com", user.Email)
	s.Require().NotNil(user.PasswordHash)
	s.NotEqual("secret-password", *user.PasswordHash)
	s.True(user.CheckPassword("secret-password"))
}

func (s *DatabaseTestSuite) TestCreateUser_UniqueUsername() {
	s.createUser("alice")

	_, err := s.client.CreateUser(s.ctx, "alice", "other@example.com", "secret-password")
	s.ErrorIs(err, ErrUsernameTaken)
}

func (s *DatabaseTestSuite) TestCreateUser_UniqueEmail() {
	s.createUser("alice")

	_, err := s.client.CreateUser(s.ctx, "bob", "alice@example.com", "secret-password")
	s.ErrorIs(err, ErrEmailTaken)
}

func (s *DatabaseTestSuite) TestUniqueIndexesEnforcedByDatabase() {
	s.createUser("alice")

	err := s.client.db.Create(&User{Username: "alice", Email: "new@example.com"}).Error
	s.Error(err)

	err = s.client.db.Create(&User{Username: "new", Email: "alice@example.com"}).Error
	s.Error(err)
}

func (s *DatabaseTestSuite) TestCreateUser_PasswordTooLong() {
	_, err := s.client.CreateUser(s.ctx, "alice", "alice@example.com", strings.Repeat("a", 73))
	s.Error(err)

	_, err = s.client.GetUserByUsername(s.ctx, "alice")
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *DatabaseTestSuite) TestGetUser() {
	user := s.createUser("alice")

	byID, err := s.client.GetUserByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Username, byID.Username)
	s.Empty(byID.Courses, "courses are loaded on demand only")

	byName, err := s.client.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(user.ID, byName.ID)

	byEmail, err := s.client.GetUserByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(user.ID, byEmail.ID)

	_, err = s.client.GetUserByID(s.ctx, 4242)
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *DatabaseTestSuite) TestGetAllUsers() {
	s.createUser("alice")
	s.createUser("bob")

	users, err := s.client.GetAllUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal("alice", users[0].Username)
	s.Equal("bob", users[1].Username)
}

func (s *DatabaseTestSuite) TestUpdateUserPassword() {
	user := s.createUser("alice")

	s.Require().NoError(s.client.UpdateUserPassword(s.ctx, user.ID, "new-password"))

	reloaded, err := s.client.GetUserByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.True(reloaded.CheckPassword("new-password"))
	s.False(reloaded.CheckPassword("secret-password"))

	s.ErrorIs(s.client.UpdateUserPassword(s.ctx, 4242, "x"), gorm.ErrRecordNotFound)
}

func (s *DatabaseTestSuite) TestDeleteUser_Cascades() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	aliceCourse := s.createCourse(alice.ID, "Algebra")
	bobCourse := s.createCourse(bob.ID, "Biology")
	s.Require().NoError(s.client.CreateAssessment(s.ctx, &Assessment{Name: "Quiz", Weight: 0.5, Mark: 80, CourseID: aliceCourse.ID}))
	s.Require().NoError(s.client.CreateAssessment(s.ctx, &Assessment{Name: "Lab", Weight: 0.5, Mark: 70, CourseID: bobCourse.ID}))

	s.Require().NoError(s.client.DeleteUser(s.ctx, alice.ID))

	_, err := s.client.GetUserByID(s.ctx, alice.ID)
	s.ErrorIs(err, gorm.ErrRecordNotFound)
	_, err = s.client.GetCourseByID(s.ctx, aliceCourse.ID)
	s.ErrorIs(err, gorm.ErrRecordNotFound)

	var orphans int64
	s.Require().NoError(s.client.db.Model(&Assessment{}).Where("course_id = ?", aliceCourse.ID).Count(&orphans).Error)
	s.Zero(orphans)

	remaining, err := s.client.GetCourseByID(s.ctx, bobCourse.ID)
	s.Require().NoError(err)
	s.Len(remaining.Assessments, 1)

	s.ErrorIs(s.client.DeleteUser(s.ctx, alice.ID), gorm.ErrRecordNotFound)
}

func (s *DatabaseTestSuite) TestCourseCRUD() {
	user := s.createUser("alice")
	before := time.Now().UTC().Add(-time.Second)

	course := s.createCourse(user.ID, "Algebra")
	s.NotZero(course.ID)
	s.False(course.Timestamp.IsZero())
	s.True(course.Timestamp.After(before))
	s.Equal(time.UTC, course.Timestamp.Location())

	course.Name = "Linear Algebra"
	course.ClassWeight = 0
	course.ExamWeight = 1
	course.AssessmentNumber = 0
	s.Require().NoError(s.client.UpdateCourse(s.ctx, course))

	reloaded, err := s.client.GetCourseByID(s.ctx, course.ID)
	s.Require().NoError(err)
	s.Equal("Linear Algebra", reloaded.Name)
	s.Zero(reloaded.ClassWeight)
	s.Equal(1.0, reloaded.ExamWeight)
	s.Zero(reloaded.AssessmentNumber)

	courses, err := s.client.GetCoursesByUserID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Len(courses, 1)

	s.Require().NoError(s.client.DeleteCourse(s.ctx, course.ID))
	_, err = s.client.GetCourseByID(s.ctx, course.ID)
	s.ErrorIs(err, gorm.ErrRecordNotFound)

	s.ErrorIs(s.client.DeleteCourse(s.ctx, course.ID), gorm.ErrRecordNotFound)
	s.ErrorIs(s.client.UpdateCourse(s.ctx, &Course{ID: 4242, Name: "x"}), gorm.ErrRecordNotFound)
}

func (s *DatabaseTestSuite) TestCourseKeepsExplicitTimestamp() {
	user := s.createUser("alice")
	ts := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)

	course := &Course{Name: "History", UserID: user.ID, Timestamp: ts}
	s.Require().NoError(s.client.CreateCourse(s.ctx, course))

	reloaded, err := s.client.GetCourseByID(s.ctx, course.ID)
	s.Require().NoError(err)
	s.True(ts.Equal(reloaded.Timestamp))
}

func (s *DatabaseTestSuite) TestGetAllCourses_PreloadsOwnerAndAssessments() {
	user := s.createUser("alice")
	course := s.createCourse(user.ID, "Algebra")
	s.Require().NoError(s.client.CreateAssessment(s.ctx, &Assessment{Name: "Quiz", Weight: 1, Mark: 90, CourseID: course.ID}))

	courses, err := s.client.GetAllCourses(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(courses, 1)
	s.Require().NotNil(courses[0].Student)
	s.Equal("alice", courses[0].Student.Username)
	s.Len(courses[0].Assessments, 1)
}

func (s *DatabaseTestSuite) TestAssessmentCRUD() {
	user := s.createUser("alice")
	course := s.createCourse(user.ID, "Algebra")

	assessment := &Assessment{Name: "Midterm", Weight: 0.3, Mark: 72.5, CourseID: course.ID}
	s.Require().NoError(s.client.CreateAssessment(s.ctx, assessment))
	s.NotZero(assessment.ID)

	loaded, err := s.client.GetAssessmentByID(s.ctx, assessment.ID)
	s.Require().NoError(err)
	s.Require().NotNil(loaded.Course)
	s.Equal(user.ID, loaded.Course.UserID)

	assessment.Mark = 0
	assessment.Name = "Midterm (retake)"
	s.Require().NoError(s.client.UpdateAssessment(s.ctx, assessment))

	list, err := s.client.GetAssessmentsByCourseID(s.ctx, course.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Zero(list[0].Mark)
	s.Equal("Midterm (retake)", list[0].Name)

	s.Require().NoError(s.client.DeleteAssessment(s.ctx, assessment.ID))
	s.ErrorIs(s.client.DeleteAssessment(s.ctx, assessment.ID), gorm.ErrRecordNotFound)
}

func (s *DatabaseTestSuite) TestCreateAssessment_MissingCourse() {
	err := s.client.CreateAssessment(s.ctx, &Assessment{Name: "Quiz", CourseID: 4242})
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *DatabaseTestSuite) TestReferentialIntegrityEnforcedByDatabase() {
	err := s.client.db.Create(&Course{Name: "Orphan", UserID: 4242}).Error
	s.Error(err)

	err = s.client.db.Create(&Assessment{Name: "Orphan", CourseID: 4242}).Error
	s.Error(err)
}

func (s *DatabaseTestSuite) TestDeleteCourse_Cascades() {
	user := s.createUser("alice")
	course := s.createCourse(user.ID, "Algebra")
	s.Require().NoError(s.client.CreateAssessment(s.ctx, &Assessment{Name: "Quiz", Weight: 1, Mark: 90, CourseID: course.ID}))

	s.Require().NoError(s.client.DeleteCourse(s.ctx, course.ID))

	list, err := s.client.GetAssessmentsByCourseID(s.ctx, course.ID)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *DatabaseTestSuite) TestGetStats() {
	stats, err := s.client.GetStats(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats.TotalUsers)
	s.Nil(stats.LatestCourseAt)

	user := s.createUser("alice")
	first := s.createCourse(user.ID, "Algebra")
	s.createCourse(user.ID, "Biology")
	s.Require().NoError(s.client.CreateAssessment(s.ctx, &Assessment{Name: "Quiz", Weight: 1, Mark: 90, CourseID: first.ID}))

	stats, err = s.client.GetStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.TotalUsers)
	s.Equal(int64(2), stats.TotalCourses)
	s.Equal(int64(1), stats.TotalAssessments)
	s.InDelta(0.5, stats.AverageAssessmentsPerCourse, 1e-9)
	s.NotNil(stats.LatestCourseAt)
}

func (s *DatabaseTestSuite) TestPing() {
	s.NoError(s.client.Ping(s.ctx))
}

func TestDatabaseTestSuite(t *testing.T) {
	suite.Run(t, new(DatabaseTestSuite))
}

func TestPasswordHashing(t *testing.T) {
	PasswordCost = bcrypt.MinCost
	defer func() { PasswordCost = bcrypt.DefaultCost }()

	passwords := []string{"a", "correct horse battery staple", "ünïcødé-🔑", strings.Repeat("x", 64)}
	for _, p := range passwords {
		var u User
		require.NoError(t, u.SetPassword(p))
		assert.True(t, u.CheckPassword(p), "password %q should verify", p)
		assert.False(t, u.CheckPassword(p+"!"), "different password must not verify")
		assert.False(t, u.CheckPassword(""), "empty password must not verify")
	}
}

func TestPasswordHashing_Salted(t *testing.T) {
	PasswordCost = bcrypt.MinCost
	defer func() { PasswordCost = bcrypt.DefaultCost }()

	var a, b User
	require.NoError(t, a.SetPassword("same"))
	require.NoError(t, b.SetPassword("same"))
	assert.NotEqual(t, *a.PasswordHash, *b.PasswordHash)
}

func TestCheckPassword_NoHash(t *testing.T) {
	var u User
	assert.False(t, u.CheckPassword(""))
	assert.False(t, u.CheckPassword("anything"))
}

func TestModelStrings(t *testing.T) {
	assert.Equal(t, "<User alice>", (&User{Username: "alice"}).String())
	assert.Equal(t, "<Course Algebra>", (&Course{Name: "Algebra"}).String())
	assert.Equal(t, "<Assessment Quiz>", (&Assessment{Name: "Quiz"}).String())
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("a.db"))
	assert.Equal(t, "a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("a.db?mode=rwc"))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)

	_, err = New(nil)
	assert.Error(t, err)
}
