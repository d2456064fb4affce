package service

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/models"
)

type mockCourseRepo struct {
	courses map[uint]models.Course
	nextID  uint
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: map[uint]models.Course{}, nextID: 1}
}

func (m *mockCourseRepo) Create(course *models.Course) error {
	course.ID = m.nextID
	m.nextID++
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Update(course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Delete(id uint) error {
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) GetByID(id uint) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		copy := course
		return &copy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) List() ([]models.Course, error) {
	result := make([]models.Course, 0, len(m.courses))
	for _, course := range m.courses {
		result = append(result, course)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockCourseRepo) Exists(id uint) (bool, error) {
	_, ok := m.courses[id]
	return ok, nil
}

type mockBlockRepo struct {
	blocks map[uint]models.CourseBlock
	nextID uint
}

func newMockBlockRepo() *mockBlockRepo {
	return &mockBlockRepo{blocks: map[uint]models.CourseBlock{}, nextID: 1}
}

func (m *mockBlockRepo) Update(block *models.CourseBlock) error {
	if _, ok := m.blocks[block.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.blocks[block.ID] = *block
	return nil
}

func (m *mockBlockRepo) GetByID(id uint) (*models.CourseBlock, error) {
	if block, ok := m.blocks[id]; ok {
		copy := block
		return &copy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBlockRepo) ListByCourse(courseID uint, includeDeleted bool) ([]models.CourseBlock, error) {
	var result []models.CourseBlock
	for _, block := range m.blocks {
		if block.CourseID != courseID {
			continue
		}
		if block.Deleted && !includeDeleted {
			continue
		}
		result = append(result, block)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (m *mockBlockRepo) CreateAt(block *models.CourseBlock) error {
	for id, existing := range m.blocks {
		if existing.CourseID == block.CourseID && !existing.Deleted && existing.Position >= block.Position {
			existing.Position++
			m.blocks[id] = existing
		}
	}
	block.ID = m.nextID
	m.nextID++
	m.blocks[block.ID] = *block
	return nil
}

func (m *mockBlockRepo) HardDelete(block *models.CourseBlock) error {
	if _, ok := m.blocks[block.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.blocks, block.ID)
	for id, existing := range m.blocks {
		if existing.CourseID == block.CourseID && !existing.Deleted && existing.Position > block.Position {
			existing.Position--
			m.blocks[id] = existing
		}
	}
	return nil
}

func (m *mockBlockRepo) SoftDeleteCascade(block *models.CourseBlock, positions map[uint]int) error {
	stored, ok := m.blocks[block.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Deleted = true
	stored.Position = 0
	m.blocks[block.ID] = stored
	for id, position := range positions {
		existing, ok := m.blocks[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		existing.Position = position
		m.blocks[id] = existing
	}
	return nil
}

func (m *mockBlockRepo) SetPositions(courseID uint, orderedIDs []uint) error {
	for index, id := range orderedIDs {
		existing, ok := m.blocks[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		existing.Position = index + 1
		m.blocks[id] = existing
	}
	return nil
}

type mockContentRepo struct {
	units  map[uint]models.ContentUnit
	nextID uint
}

func newMockContentRepo() *mockContentRepo {
	return &mockContentRepo{units: map[uint]models.ContentUnit{}, nextID: 1}
}

func (m *mockContentRepo) GetByBlockID(blockID uint) (*models.ContentUnit, error) {
	if unit, ok := m.units[blockID]; ok {
		copy := unit
		return &copy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockContentRepo) Replace(unit *models.ContentUnit) (*models.ContentUnit, error) {
	var previous *models.ContentUnit
	if existing, ok := m.units[unit.BlockID]; ok {
		copy := existing
		previous = &copy
	}
	unit.ID = m.nextID
	m.nextID++
	m.units[unit.BlockID] = *unit
	return previous, nil
}

func (m *mockContentRepo) ListSourcePaths() ([]string, error) {
	var paths []string
	for _, unit := range m.units {
		if unit.SourcePath != "" {
			paths = append(paths, unit.SourcePath)
		}
	}
	return paths, nil
}

type mockAssessmentRepo struct {
	assessments map[uint]models.Assessment
	nextID      uint
}

func newMockAssessmentRepo() *mockAssessmentRepo {
	return &mockAssessmentRepo{assessments: map[uint]models.Assessment{}, nextID: 1}
}

func (m *mockAssessmentRepo) GetByID(id uint) (*models.Assessment, error) {
	for _, assessment := range m.assessments {
		if assessment.ID == id {
			copy := assessment
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssessmentRepo) GetByBlockID(blockID uint) (*models.Assessment, error) {
	if assessment, ok := m.assessments[blockID]; ok {
		copy := assessment
		return &copy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssessmentRepo) GetByBlockIDs(blockIDs []uint) (map[uint]models.Assessment, error) {
	result := make(map[uint]models.Assessment, len(blockIDs))
	for _, blockID := range blockIDs {
		if assessment, ok := m.assessments[blockID]; ok {
			result[blockID] = assessment
		}
	}
	return result, nil
}

func (m *mockAssessmentRepo) Upsert(assessment *models.Assessment) error {
	if assessment.ID == 0 {
		assessment.ID = m.nextID
		m.nextID++
	}
	m.assessments[assessment.BlockID] = *assessment
	return nil
}

type mockQuestionRepo struct {
	questions map[uint]models.Question
	nextID    uint
}

func newMockQuestionRepo() *mockQuestionRepo {
	return &mockQuestionRepo{questions: map[uint]models.Question{}, nextID: 1}
}

func (m *mockQuestionRepo) Create(question *models.Question) error {
	question.ID = m.nextID
	m.nextID++
	m.questions[question.ID] = *question
	return nil
}

func (m *mockQuestionRepo) CreateBatch(questions []models.Question) error {
	for i := range questions {
		questions[i].ID = m.nextID
		m.nextID++
		m.questions[questions[i].ID] = questions[i]
	}
	return nil
}

func (m *mockQuestionRepo) Update(question *models.Question) error {
	if _, ok := m.questions[question.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.questions[question.ID] = *question
	return nil
}

func (m *mockQuestionRepo) Delete(id uint) error {
	question, ok := m.questions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	question.Deleted = true
	m.questions[id] = question
	return nil
}

func (m *mockQuestionRepo) GetByID(id uint) (*models.Question, error) {
	if question, ok := m.questions[id]; ok && !question.Deleted {
		copy := question
		return &copy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuestionRepo) ListByAssessment(assessmentID uint) ([]models.Question, error) {
	var result []models.Question
	for _, question := range m.questions {
		if question.AssessmentID == assessmentID && !question.Deleted {
			result = append(result, question)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockQuestionRepo) GetByIDs(ids []uint) ([]models.Question, error) {
	result := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		if question, ok := m.questions[id]; ok {
			result = append(result, question)
		}
	}
	return result, nil
}

type mockReviewRepo struct {
	reviews map[uint]models.ReviewRequest
	courses *mockCourseRepo
	nextID  uint
}

func newMockReviewRepo(courses *mockCourseRepo) *mockReviewRepo {
	return &mockReviewRepo{reviews: map[uint]models.ReviewRequest{}, courses: courses, nextID: 1}
}

func (m *mockReviewRepo) Create(review *models.ReviewRequest) error {
	review.ID = m.nextID
	m.nextID++
	review.CreatedAt = time.Now()
	m.reviews[review.ID] = *review
	return nil
}

func (m *mockReviewRepo) GetByID(id uint) (*models.ReviewRequest, error) {
	if review, ok := m.reviews[id]; ok {
		copy := review
		return &copy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReviewRepo) LatestByCourse(courseID uint) (*models.ReviewRequest, error) {
	var latest *models.ReviewRequest
	for _, review := range m.reviews {
		if review.CourseID != courseID {
			continue
		}
		copy := review
		if latest == nil || copy.ID > latest.ID {
			latest = &copy
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (m *mockReviewRepo) Resolve(review *models.ReviewRequest, courseStatus string, bumpVersion bool) error {
	if _, ok := m.reviews[review.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.reviews[review.ID] = *review
	course, ok := m.courses.courses[review.CourseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	course.Status = courseStatus
	if bumpVersion {
		course.Version++
	}
	m.courses.courses[course.ID] = course
	return nil
}

func (m *mockReviewRepo) CreateWithCourseStatus(review *models.ReviewRequest, courseStatus string) error {
	if err := m.Create(review); err != nil {
		return err
	}
	course, ok := m.courses.courses[review.CourseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	course.Status = courseStatus
	m.courses.courses[course.ID] = course
	return nil
}

type mockLearnerRepo struct {
	learners map[uint]models.Learner
	nextID   uint
}

func newMockLearnerRepo() *mockLearnerRepo {
	return &mockLearnerRepo{learners: map[uint]models.Learner{}, nextID: 1}
}

func (m *mockLearnerRepo) Create(learner *models.Learner) error {
	learner.ID = m.nextID
	m.nextID++
	m.learners[learner.ID] = *learner
	return nil
}

func (m *mockLearnerRepo) GetByID(id uint) (*models.Learner, error) {
	if learner, ok := m.learners[id]; ok {
		copy := learner
		return &copy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLearnerRepo) GetByBadgeID(badgeID string) (*models.Learner, error) {
	for _, learner := range m.learners {
		if learner.BadgeID == badgeID {
			copy := learner
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type mockEnrollmentRepo struct {
	enrollments map[uint]models.Enrollment
	nextID      uint
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{enrollments: map[uint]models.Enrollment{}, nextID: 1}
}

func (m *mockEnrollmentRepo) Create(enrollment *models.Enrollment) error {
	enrollment.ID = m.nextID
	m.nextID++
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *mockEnrollmentRepo) Update(enrollment *models.Enrollment) error {
	if _, ok := m.enrollments[enrollment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *mockEnrollmentRepo) GetByID(id uint) (*models.Enrollment, error) {
	if enrollment, ok := m.enrollments[id]; ok {
		copy := enrollment
		return &copy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) GetByLearnerAndCourse(learnerID, courseID uint) (*models.Enrollment, error) {
	for _, enrollment := range m.enrollments {
		if enrollment.LearnerID == learnerID && enrollment.CourseID == courseID {
			copy := enrollment
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type mockProgressRepo struct {
	rows   map[uint]models.EnrollmentProgress
	nextID uint
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{rows: map[uint]models.EnrollmentProgress{}, nextID: 1}
}

func (m *mockProgressRepo) GetOrCreate(enrollmentID, blockID uint) (*models.EnrollmentProgress, error) {
	if row, err := m.Get(enrollmentID, blockID); err == nil {
		return row, nil
	}
	row := models.EnrollmentProgress{
		ID:           m.nextID,
		EnrollmentID: enrollmentID,
		BlockID:      blockID,
		Status:       models.ProgressNotStarted,
	}
	m.nextID++
	m.rows[row.ID] = row
	copy := row
	return &copy, nil
}

func (m *mockProgressRepo) Get(enrollmentID, blockID uint) (*models.EnrollmentProgress, error) {
	for _, row := range m.rows {
		if row.EnrollmentID == enrollmentID && row.BlockID == blockID {
			copy := row
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProgressRepo) Update(progress *models.EnrollmentProgress) error {
	if _, ok := m.rows[progress.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.rows[progress.ID] = *progress
	return nil
}

func (m *mockProgressRepo) ListByEnrollment(enrollmentID uint) ([]models.EnrollmentProgress, error) {
	var result []models.EnrollmentProgress
	for _, row := range m.rows {
		if row.EnrollmentID == enrollmentID {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type mockAttemptRepo struct {
	attempts map[string]models.AssessmentAttempt
	nextID   uint
}

func newMockAttemptRepo() *mockAttemptRepo {
	return &mockAttemptRepo{attempts: map[string]models.AssessmentAttempt{}, nextID: 1}
}

func (m *mockAttemptRepo) Create(attempt *models.AssessmentAttempt) error {
	attempt.ID = m.nextID
	m.nextID++
	m.attempts[attempt.Token] = *attempt
	return nil
}

func (m *mockAttemptRepo) Update(attempt *models.AssessmentAttempt) error {
	if _, ok := m.attempts[attempt.Token]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.attempts[attempt.Token] = *attempt
	return nil
}

func (m *mockAttemptRepo) GetByToken(token string) (*models.AssessmentAttempt, error) {
	if attempt, ok := m.attempts[token]; ok {
		copy := attempt
		return &copy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttemptRepo) ActiveForBlock(enrollmentID, blockID uint) (*models.AssessmentAttempt, error) {
	var latest *models.AssessmentAttempt
	for _, attempt := range m.attempts {
		if attempt.EnrollmentID != enrollmentID || attempt.BlockID != blockID {
			continue
		}
		if attempt.State != models.AttemptStateInProgress {
			continue
		}
		copy := attempt
		if latest == nil || copy.StartedAt.After(latest.StartedAt) {
			latest = &copy
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (m *mockAttemptRepo) CountActiveForBlock(blockID uint) (int64, error) {
	var count int64
	for _, attempt := range m.attempts {
		if attempt.BlockID == blockID && attempt.State == models.AttemptStateInProgress {
			count++
		}
	}
	return count, nil
}

func (m *mockAttemptRepo) ListOverdue(before time.Time, limit int) ([]models.AssessmentAttempt, error) {
	var overdue []models.AssessmentAttempt
	for _, attempt := range m.attempts {
		if attempt.State != models.AttemptStateInProgress {
			continue
		}
		if attempt.Deadline.After(before) {
			continue
		}
		overdue = append(overdue, attempt)
		if limit > 0 && len(overdue) >= limit {
			break
		}
	}
	return overdue, nil
}

type mockCertificateRepo struct {
	certs  map[string]models.Certificate
	nextID uint
}

func newMockCertificateRepo() *mockCertificateRepo {
	return &mockCertificateRepo{certs: map[string]models.Certificate{}, nextID: 1}
}

func (m *mockCertificateRepo) Create(cert *models.Certificate) error {
	cert.ID = m.nextID
	m.nextID++
	m.certs[cert.Code] = *cert
	return nil
}

func (m *mockCertificateRepo) Update(cert *models.Certificate) error {
	if _, ok := m.certs[cert.Code]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.certs[cert.Code] = *cert
	return nil
}

func (m *mockCertificateRepo) GetByCode(code string) (*models.Certificate, error) {
	if cert, ok := m.certs[code]; ok {
		copy := cert
		return &copy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCertificateRepo) GetByEnrollment(enrollmentID uint) (*models.Certificate, error) {
	for _, cert := range m.certs {
		if cert.EnrollmentID == enrollmentID {
			copy := cert
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCertificateRepo) ListByLearner(learnerID uint) ([]models.Certificate, error) {
	var result []models.Certificate
	for _, cert := range m.certs {
		if cert.LearnerID == learnerID {
			result = append(result, cert)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockCertificateRepo) CountIssuedOn(day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	var count int64
	for _, cert := range m.certs {
		if !cert.IssuedAt.Before(start) && cert.IssuedAt.Before(end) {
			count++
		}
	}
	return count, nil
}

// fakeClock is a controllable Clock for deadline and cooldown tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
